// Package conversation holds the cooking chat, the chat command parser and
// the terminal notifier.
package conversation

import (
	"regexp"
	"strings"
)

// CommandType is what a chat line asks for.
type CommandType int

const (
	CommandSay CommandType = iota
	CommandCook
	CommandHealthy
	CommandRecipes
	CommandAllergies
	CommandReset
	CommandHelp
	CommandQuit
)

// String returns a human-readable command name.
func (t CommandType) String() string {
	switch t {
	case CommandSay:
		return "say"
	case CommandCook:
		return "cook"
	case CommandHealthy:
		return "healthy"
	case CommandRecipes:
		return "recipes"
	case CommandAllergies:
		return "allergies"
	case CommandReset:
		return "reset"
	case CommandHelp:
		return "help"
	case CommandQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Command is a parsed chat line. Payload holds the remaining text.
type Command struct {
	Type    CommandType
	Payload string
}

type commandRule struct {
	regex *regexp.Regexp
	typ   CommandType
}

// Slash commands carry their argument in the first capture group.
var commandRules = []commandRule{
	{regexp.MustCompile(`(?i)^/(?:quit|exit|q)$`), CommandQuit},
	{regexp.MustCompile(`(?i)^/(?:help|h|\?)$`), CommandHelp},
	{regexp.MustCompile(`(?i)^/(?:reset|clear)$`), CommandReset},
	{regexp.MustCompile(`(?i)^/(?:recipes|list)$`), CommandRecipes},
	{regexp.MustCompile(`(?i)^/(?:cook|generate|go)(?:\s+(.*))?$`), CommandCook},
	{regexp.MustCompile(`(?i)^/(?:healthy|nutritionist)(?:\s+(.*))?$`), CommandHealthy},
	{regexp.MustCompile(`(?i)^/(?:allergies|allergy)(?:\s+(.*))?$`), CommandAllergies},
}

// ParseCommand classifies one chat line. Anything that is not a known
// slash command is said to the assistant.
func ParseCommand(input string) Command {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return Command{Type: CommandSay}
	}
	if strings.HasPrefix(trimmed, "/") {
		for _, rule := range commandRules {
			if m := rule.regex.FindStringSubmatch(trimmed); m != nil {
				cmd := Command{Type: rule.typ}
				if len(m) > 1 {
					cmd.Payload = strings.TrimSpace(m[1])
				}
				return cmd
			}
		}
	}
	return Command{Type: CommandSay, Payload: trimmed}
}

// HelpText lists the chat commands.
const HelpText = `/cook [ingredients]   generate recipes from the list or the chat so far
/healthy [prefs]      three healthy recipes from the nutritionist
/allergies <list>     set allergies for this chat
/recipes              list saved recipes
/reset                start the chat over
/quit                 leave`
