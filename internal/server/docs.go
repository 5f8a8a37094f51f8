package server

import (
	"slices"
	"strings"

	"github.com/eternalApril/starlight/internal/resp"
)

type commandMetadata struct {
	arity    int      // Arity includes the command name itself
	flags    []string // readonly, write, fast, denyoom, etc
	firstKey int      // 1-based index of the first key
	lastKey  int      // 1-based index of the last key
	step     int      // Step count for finding keys
}

var commandRegistry = map[string]commandMetadata{
	"PING":    {-1, []string{"fast", "stale"}, 0, 0, 0},
	"ECHO":    {-1, []string{"fast", "stale"}, 0, 0, 0},
	"GET":     {2, []string{"readonly", "fast"}, 1, 1, 1},
	"SET":     {-3, []string{"write", "denyoom"}, 1, 1, 1},
	"INFO":    {-1, []string{"random", "loading", "stale"}, 0, 0, 0},
	"COMMAND": {-1, []string{"random", "loading", "stale"}, 0, 0, 0},
}

// commandDoc stores a description for the command
type commandDoc struct {
	summary    string
	complexity string
	group      string
	since      string
}

// commandDocsRegistry documentation registry
var commandDocsRegistry = map[string]commandDoc{
	"PING": {
		summary:    "Returns the server's liveliness response.",
		complexity: "O(1)",
		group:      "connection",
		since:      "1.0.0",
	},
	"ECHO": {
		summary:    "Returns the given string.",
		complexity: "O(1)",
		group:      "connection",
		since:      "1.0.0",
	},
	"GET": {
		summary:    "Returns the string value of a key.",
		complexity: "O(1)",
		group:      "string",
		since:      "1.0.0",
	},
	"SET": {
		summary:    "Sets the string value of a key, ignoring its type. The key is created if it doesn't exist.",
		complexity: "O(1)",
		group:      "string",
		since:      "1.0.0",
	},
	"INFO": {
		summary:    "Returns information and statistics about the server.",
		complexity: "O(1)",
		group:      "server",
		since:      "1.0.0",
	},
	"COMMAND": {
		summary:    "Returns detailed information about all commands.",
		complexity: "O(N) where N is the total number of commands",
		group:      "server",
		since:      "2.8.13",
	},
}

func makeFlagsArray(flags []string) resp.Value {
	vals := make([]resp.Value, len(flags))
	for i, f := range flags {
		vals[i] = resp.MakeSimpleString(f)
	}
	return resp.MakeArray(vals)
}

func makeInfoCmdArray(name string) []resp.Value {
	meta := commandRegistry[name]
	return []resp.Value{
		resp.MakeBulkString(strings.ToLower(name)),
		resp.MakeInteger(int64(meta.arity)),
		makeFlagsArray(meta.flags),
		resp.MakeInteger(int64(meta.firstKey)),
		resp.MakeInteger(int64(meta.lastKey)),
		resp.MakeInteger(int64(meta.step)),
	}
}

// commandNames returns the registered names in a stable order
func commandNames() []string {
	names := make([]string, 0, len(commandRegistry))
	for name := range commandRegistry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func getAllCommands() resp.Value {
	cmdArray := make([]resp.Value, 0, len(commandRegistry))
	for _, name := range commandNames() {
		cmdArray = append(cmdArray, resp.MakeArray(makeInfoCmdArray(name)))
	}
	return resp.MakeArray(cmdArray)
}

// getCommandsInfo returns details of the named commands, a null array for unknown names
func getCommandsInfo(names []string) resp.Value {
	result := make([]resp.Value, 0, len(names))
	for _, name := range names {
		name = strings.ToUpper(name)
		if _, ok := commandRegistry[name]; !ok {
			result = append(result, resp.MakeNilArray())
			continue
		}
		result = append(result, resp.MakeArray(makeInfoCmdArray(name)))
	}
	return resp.MakeArray(result)
}

// getCommandsDocs returns documentation for specified commands or all commands
// Format: [Name, [Summary, val, Since, val...], Name, [...]]
func getCommandsDocs(names []string) resp.Value {
	targets := names
	if len(targets) == 0 {
		targets = commandNames()
	}

	result := make([]resp.Value, 0, len(targets)*2)

	for _, name := range targets {
		name = strings.ToUpper(name)
		doc, ok := commandDocsRegistry[name]
		if !ok {
			continue
		}

		result = append(result, resp.MakeBulkString(strings.ToLower(name)))

		props := []resp.Value{
			resp.MakeBulkString("summary"),
			resp.MakeBulkString(doc.summary),
			resp.MakeBulkString("since"),
			resp.MakeBulkString(doc.since),
			resp.MakeBulkString("group"),
			resp.MakeBulkString(doc.group),
			resp.MakeBulkString("complexity"),
			resp.MakeBulkString(doc.complexity),
		}

		result = append(result, resp.MakeArray(props))
	}

	return resp.MakeArray(result)
}
