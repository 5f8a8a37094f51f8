package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/eternalApril/starlight/internal/resp"
	"github.com/eternalApril/starlight/internal/storage"
)

// Command errors, all reported to the client as "ERR <message>"
var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrWrongArity     = errors.New("wrong number of arguments")
	ErrSyntax         = errors.New("syntax error")
	ErrNotInteger     = errors.New("value is not an integer or out of range")
	ErrNotBulkString  = errors.New("operand is not a bulk string")
)

// cmdContext is what a command sees while running
type cmdContext struct {
	args    []resp.Value // operands, the verb excluded
	storage storage.Storage
	engine  *Engine
}

// bulkArg returns operand i as a string. Operands must be non-null bulk strings
func (c *cmdContext) bulkArg(i int) (string, error) {
	v := c.args[i]
	if v.Type != resp.TypeBulkString || v.IsNull {
		return "", resp.NewCommandError(ErrNotBulkString, ErrNotBulkString.Error())
	}
	return v.Text(), nil
}

type command interface {
	execute(ctx *cmdContext) (resp.Value, error)
}

type commandFunc func(ctx *cmdContext) (resp.Value, error)

func (c commandFunc) execute(ctx *cmdContext) (resp.Value, error) {
	return c(ctx)
}

func errWrongArity(name string) error {
	return resp.NewCommandError(ErrWrongArity,
		fmt.Sprintf("wrong number of arguments for '%s' command", strings.ToLower(name)))
}

func errUnknownCommand(verb string) error {
	return resp.NewCommandError(ErrUnknownCommand, fmt.Sprintf("unknown command '%s'", verb))
}

func errSyntax() error {
	return resp.NewCommandError(ErrSyntax, ErrSyntax.Error())
}

func errNotInteger() error {
	return resp.NewCommandError(ErrNotInteger, ErrNotInteger.Error())
}

// checkArity validates argc (verb included) against a registry arity:
// positive means exactly, negative means at least
func checkArity(arity, argc int) bool {
	if arity >= 0 {
		return argc == arity
	}
	return argc >= -arity
}
