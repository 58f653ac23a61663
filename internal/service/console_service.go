package service

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCommand 表示控制台不支持该命令。
var ErrUnknownCommand = errors.New("unknown console command")

// ConsoleResult 是一次控制台命令的输出。
type ConsoleResult struct {
	Command string
	Lines   []string
	// Mutated 表示命令修改了数据，需要以 Action 写入后台日志。
	Mutated bool
	Action  string
}

type consoleCommand struct {
	name   string
	usage  string
	action string
	run     func(args []string, actorID uint) ([]string, error)
}

// ConsoleService 执行后台控制台中的运维命令。
type ConsoleService struct {
	users    *UserService
	blog     *BlogService
	contents *ContentService
	versions *ContentVersionService
	logs     *AdminLogService
	commands []consoleCommand
}

// NewConsoleService 构造 ConsoleService。
func NewConsoleService(users *UserService, blog *BlogService, contents *ContentService, versions *ContentVersionService, logs *AdminLogService) *ConsoleService {
	s := &ConsoleService{
		users:    users,
		blog:     blog,
		contents: contents,
		versions: versions,
		logs:     logs,
	}
	s.commands = []consoleCommand{
		{name: "help", usage: "help                 list available commands", run: s.help},
		{name: "stats", usage: "stats                show user, post, version and log counts", run: s.stats},
		{name: "users", usage: "users [search]       list the newest accounts", run: s.listUsers},
		{name: "versions", usage: "versions             list published content versions", run: s.listVersions},
		{name: "clear-logs", usage: "clear-logs           delete every admin log entry", action: ActionConsole, run: s.clearLogs},
		{name: "reseed", usage: "reseed               reset site content to the defaults", action: ActionContentReset, run: s.reseed},
	}
	return s
}

// Execute 解析并执行一条命令。
func (s *ConsoleService) Execute(input string, actorID uint) (*ConsoleResult, error) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrUnknownCommand)
	}

	name := strings.ToLower(fields[0])
	for _, cmd := range s.commands {
		if cmd.name != name {
			continue
		}
		lines, err := cmd.run(fields[1:], actorID)
		if err != nil {
			return nil, err
		}
		return &ConsoleResult{Command: name, Lines: lines, Mutated: cmd.action != "", Action: cmd.action}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
}

func (s *ConsoleService) help(_ []string, _ uint) ([]string, error) {
	lines := make([]string, 0, len(s.commands))
	for _, cmd := range s.commands {
		lines = append(lines, cmd.usage)
	}
	return lines, nil
}

func (s *ConsoleService) stats(_ []string, _ uint) ([]string, error) {
	users, err := s.users.Count()
	if err != nil {
		return nil, err
	}
	posts, published, err := s.blog.Count()
	if err != nil {
		return nil, err
	}
	history, err := s.versions.History(0)
	if err != nil {
		return nil, err
	}
	logs, err := s.logs.Count()
	if err != nil {
		return nil, err
	}

	return []string{
		fmt.Sprintf("users: %d", users),
		fmt.Sprintf("posts: %d (published %d)", posts, published),
		fmt.Sprintf("versions: %d", len(history)),
		fmt.Sprintf("logs: %d", logs),
	}, nil
}

func (s *ConsoleService) listUsers(args []string, _ uint) ([]string, error) {
	result, err := s.users.List(UserFilter{Search: strings.Join(args, " "), PerPage: 20})
	if err != nil {
		return nil, err
	}
	if len(result.Users) == 0 {
		return []string{"no users"}, nil
	}

	lines := make([]string, 0, len(result.Users)+1)
	for _, user := range result.Users {
		var flags []string
		if user.IsAdmin {
			flags = append(flags, "admin")
		}
		if user.Verified {
			flags = append(flags, "verified")
		}
		line := fmt.Sprintf("#%d %s %s", user.ID, user.Email, user.Name)
		if len(flags) > 0 {
			line += " [" + strings.Join(flags, ",") + "]"
		}
		lines = append(lines, line)
	}
	lines = append(lines, fmt.Sprintf("%d of %d shown", len(result.Users), result.Total))
	return lines, nil
}

func (s *ConsoleService) listVersions(_ []string, _ uint) ([]string, error) {
	history, err := s.versions.History(0)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return []string{"no published versions"}, nil
	}

	lines := make([]string, 0, len(history))
	for _, version := range history {
		line := fmt.Sprintf("v%d id=%d", version.Version, version.ID)
		if version.PublishedAt != nil {
			line += " " + version.PublishedAt.UTC().Format("2006-01-02 15:04")
		}
		if version.Active {
			line += " (active)"
		}
		if version.Note != "" {
			line += " " + version.Note
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (s *ConsoleService) clearLogs(_ []string, _ uint) ([]string, error) {
	removed, err := s.logs.Clear()
	if err != nil {
		return nil, err
	}
	return []string{fmt.Sprintf("cleared %d log entries", removed)}, nil
}

func (s *ConsoleService) reseed(_ []string, actorID uint) ([]string, error) {
	if _, err := s.contents.Reset(actorID); err != nil {
		return nil, err
	}
	return []string{"site content reset to defaults"}, nil
}
