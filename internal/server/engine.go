package server

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/eternalApril/starlight/internal/config"
	"github.com/eternalApril/starlight/internal/metrics"
	"github.com/eternalApril/starlight/internal/resp"
	"github.com/eternalApril/starlight/internal/storage"
	"go.uber.org/zap"
)

// Engine dispatches commands to their handlers. It implements resp.Executor
type Engine struct {
	commands    map[string]command // Registry of available commands (the key is the command name in uppercase)
	storage     storage.Storage    // Interface to the underlying KV storage
	replication replication
	metrics     *metrics.Metrics
	logger      *zap.Logger

	port      string
	startedAt time.Time

	connectedClients atomic.Int64
	totalConnections atomic.Uint64
	totalCommands    atomic.Uint64
}

// NewEngine initializes the engine and registers the basic commands.
// m may be nil when metrics are not collected
func NewEngine(s storage.Storage, cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) (*Engine, error) {
	repl, err := newReplication(cfg.Replication)
	if err != nil {
		return nil, fmt.Errorf("replication: %w", err)
	}

	engine := &Engine{
		commands:    make(map[string]command),
		storage:     s,
		replication: repl,
		metrics:     m,
		logger:      logger,
		port:        cfg.Server.Port,
		startedAt:   time.Now(),
	}
	engine.registerBasicCommand()

	return engine, nil
}

// register adds a new command to the engine. The command name is uppercase
func (e *Engine) register(name string, cmd command) {
	e.commands[strings.ToUpper(name)] = cmd
}

// registerBasicCommand fills the registry with standard commands
func (e *Engine) registerBasicCommand() {
	e.register("PING", commandFunc(ping))
	e.register("ECHO", commandFunc(echo))
	e.register("SET", commandFunc(set))
	e.register("GET", commandFunc(get))
	e.register("INFO", commandFunc(info))
	e.register("COMMAND", commandFunc(commandCmd))
}

// Execute runs one command. args[0] is the verb, matched case-insensitively.
// Refused commands return a *resp.Error of kind resp.KindCommand
func (e *Engine) Execute(args []resp.Value) (resp.Value, error) {
	if len(args) == 0 {
		return resp.Value{}, resp.NewCommandError(resp.ErrEmptyCommand, resp.ErrEmptyCommand.Error())
	}

	verb := args[0].Text()
	name := strings.ToUpper(verb)

	if e.logger.Core().Enabled(zap.DebugLevel) {
		e.logger.Debug("executing command",
			zap.String("cmd", name),
			zap.Int("args_count", len(args)-1),
		)
	}

	cmd, ok := e.commands[name]
	if !ok {
		e.metrics.CommandDone("unknown", true)
		return resp.Value{}, errUnknownCommand(verb)
	}

	e.totalCommands.Add(1)

	if !checkArity(commandRegistry[name].arity, len(args)) {
		e.metrics.CommandDone(name, true)
		return resp.Value{}, errWrongArity(name)
	}

	res, err := cmd.execute(&cmdContext{
		args:    args[1:],
		storage: e.storage,
		engine:  e,
	})

	e.metrics.CommandDone(name, err != nil)

	return res, err
}

func (e *Engine) clientConnected() {
	e.connectedClients.Add(1)
	e.totalConnections.Add(1)
	e.metrics.ClientConnected()
}

func (e *Engine) clientDisconnected() {
	e.connectedClients.Add(-1)
	e.metrics.ClientDisconnected()
}
