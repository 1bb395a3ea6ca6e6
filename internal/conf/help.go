package conf

import (
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// HelpConfig contains the help pages shown by the help command
type HelpConfig struct {
	Pages []HelpPage `yaml:"pages"`
}

// HelpPage is one page of help text
type HelpPage struct {
	Title string `yaml:"title"`
	Body  string `yaml:"body"`
}

// LoadHelpConfig loads the help pages from a YAML file
func LoadHelpConfig(configPath string) (*HelpConfig, error) {
	// Try multiple paths
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/help.yaml",
			"./configs/help.yaml",
			"/etc/feishu-trigger-bot/help.yaml",
		}
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "help.yaml"))
		}
	}

	var data []byte
	var loadedPath string
	for _, p := range paths {
		if p == "" {
			continue
		}
		if b, err := os.ReadFile(p); err == nil {
			data, loadedPath = b, p
			break
		}
	}

	if data == nil {
		// Return default pages if no file found
		log.Println("[Config] No help.yaml found, using built-in help pages")
		return DefaultHelpConfig(), nil
	}

	log.Printf("[Config] Loading help pages from: %s", loadedPath)
	var cfg HelpConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Pages) == 0 {
		return DefaultHelpConfig(), nil
	}
	return &cfg, nil
}

// DefaultHelpConfig returns the built-in help pages.
func DefaultHelpConfig() *HelpConfig {
	return &HelpConfig{Pages: []HelpPage{
		{
			Title: "Preface",
			Body: "Triggers are a way to make the bot respond to certain messages.\n" +
				"The module offers multiple matching modes along with the special mode `regex`, " +
				"which allows you to use regular expressions to match messages, giving you the most flexibility.",
		},
		{
			Title: "Commands",
			Body: "/triggers help [page] - Display this help menu\n" +
				"/triggers list [page] - Display a list of all triggers\n" +
				"/triggers inspect <id> [advanced] - Display information about a specific trigger\n" +
				"/triggers add mode=<mode> pattern=\"...\" response=\"...\" [options] - Add a new trigger\n" +
				"/triggers edit <id> [properties] - Edit an existing trigger\n" +
				"/triggers remove <id> - Remove an existing trigger\n" +
				"/triggers setglobal [properties] - Manage global values for optional properties\n" +
				"/triggers reset <id> <property> - Reset an optional property to its global value",
		},
		{
			Title: "Command: add",
			Body: "Usage: /triggers add mode=<mode> pattern=\"...\" response=\"...\" [options]\n\n" +
				"Creates a new trigger. The trigger is added at the end of the list and is available immediately.\n" +
				"Required: mode (one of plain, word, full, regex), pattern, response.\n" +
				"Multiple responses can be registered by separating them with a semicolon (;). " +
				"The bot chooses one at random. Use \\; for a literal semicolon and \\n for a line break.",
		},
		{
			Title: "Command: add (options)",
			Body: "cooldown=<seconds> - Ignore matching messages sent within the cooldown period. Inherits the global value.\n" +
				"case_sensitive=<bool> - Whether \"a\" and \"A\" are different letters. Inherits the global value.\n" +
				"avoid_links=<bool> - Do not look for the pattern inside links. Inherits the global value.\n" +
				"avoid_emotes=<bool> - Do not look for the pattern inside emotes. Inherits the global value.\n" +
				"start=<bool> - Only match at the start of the message. Defaults to false.\n" +
				"end=<bool> - Only match at the end of the message. Defaults to false.",
		},
		{
			Title: "Command: edit",
			Body: "Usage: /triggers edit <id> [properties]\n\n" +
				"Edits an existing trigger in place. Any property from the add command can be changed, " +
				"plus new_id=<id> to move the trigger to a different position in the list. " +
				"Triggers are checked in list order and the first match wins, so put the most specific " +
				"triggers first. Changing the cooldown clears the trigger's cooldown history.",
		},
		{
			Title: "Command: remove",
			Body: "Usage: /triggers remove <id>\n\n" +
				"Removes an existing trigger. The bot asks for confirmation first; " +
				"answer with /triggers confirm or /triggers cancel within 30 seconds. " +
				"The IDs of all later triggers shift down by one.",
		},
		{
			Title: "Matching modes",
			Body: "plain - The pattern matches anywhere inside the message.\n" +
				"word - The pattern only matches whole words (\"end\" does not match \"friendship\").\n" +
				"full - The pattern must match the entire message.\n" +
				"regex - The pattern is a regular expression. Capture groups are available " +
				"to the response as {match1}, {match2}, ... ({match0} is the whole match).",
		},
		{
			Title: "Response templates",
			Body: "Responses may reference the author of the matching message:\n" +
				"{author_username}, {author_display}, {author_nickname}, {author_id} - inserted as plain text.\n" +
				"@{author_username} (and friends) - inserted as a mention of the author.\n" +
				"{matchN} - the Nth capture group of the match; {match0} is the whole match.",
		},
	}}
}
