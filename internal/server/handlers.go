package server

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/eternalApril/starlight/internal/resp"
	"github.com/eternalApril/starlight/internal/storage"
)

// maxTTL keeps now+TTL representable in unix nanoseconds
const maxTTL = time.Duration(math.MaxInt64 / 2)

// textReply answers with a simple string unless s cannot be one
func textReply(s string) resp.Value {
	if strings.ContainsAny(s, "\r\n") {
		return resp.MakeBulkString(s)
	}
	return resp.MakeSimpleString(s)
}

// ping returns PONG, or the message when one is given
func ping(ctx *cmdContext) (resp.Value, error) {
	switch len(ctx.args) {
	case 0:
		return resp.MakeSimpleString("PONG"), nil
	case 1:
		msg, err := ctx.bulkArg(0)
		if err != nil {
			return resp.Value{}, err
		}
		return textReply(msg), nil
	default:
		return resp.Value{}, errWrongArity("PING")
	}
}

// echo returns the message, or an empty bulk string without one
func echo(ctx *cmdContext) (resp.Value, error) {
	switch len(ctx.args) {
	case 0:
		return resp.MakeBulkString(""), nil
	case 1:
		msg, err := ctx.bulkArg(0)
		if err != nil {
			return resp.Value{}, err
		}
		return textReply(msg), nil
	default:
		return resp.Value{}, errWrongArity("ECHO")
	}
}

// set stores a value. Syntax: SET key value [PX milliseconds | EX seconds]
func set(ctx *cmdContext) (resp.Value, error) {
	key, err := ctx.bulkArg(0)
	if err != nil {
		return resp.Value{}, err
	}

	value, err := ctx.bulkArg(1)
	if err != nil {
		return resp.Value{}, err
	}

	var options storage.SetOptions

	for i := 2; i < len(ctx.args); i++ {
		var unit time.Duration

		switch strings.ToUpper(ctx.args[i].Text()) {
		case "PX":
			unit = time.Millisecond
		case "EX":
			unit = time.Second
		default:
			return resp.Value{}, errSyntax()
		}

		// one expiration per command, and it needs a number after it
		if options.TTL != 0 || i+1 >= len(ctx.args) {
			return resp.Value{}, errSyntax()
		}
		i++

		ttl, err := parseTTL(ctx.args[i].Text(), unit)
		if err != nil {
			return resp.Value{}, err
		}
		options.TTL = ttl
	}

	ctx.storage.Set(key, value, options)

	return resp.MakeSimpleString("OK"), nil
}

// parseTTL converts a positive decimal count of unit into a duration
func parseTTL(s string, unit time.Duration) (time.Duration, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 || n > int64(maxTTL/unit) {
		return 0, errNotInteger()
	}
	return time.Duration(n) * unit, nil
}

// get returns the value of a key or a null bulk string if it is missing or expired
func get(ctx *cmdContext) (resp.Value, error) {
	key, err := ctx.bulkArg(0)
	if err != nil {
		return resp.Value{}, err
	}

	val, ok := ctx.storage.Get(key)
	if !ok {
		return resp.MakeNilBulkString(), nil
	}

	return textReply(val), nil
}

// commandCmd answers COMMAND, COMMAND COUNT, COMMAND INFO and COMMAND DOCS
func commandCmd(ctx *cmdContext) (resp.Value, error) {
	if len(ctx.args) == 0 {
		return getAllCommands(), nil
	}

	names := make([]string, 0, len(ctx.args)-1)
	for _, arg := range ctx.args[1:] {
		names = append(names, arg.Text())
	}

	switch strings.ToUpper(ctx.args[0].Text()) {
	case "COUNT":
		if len(names) != 0 {
			return resp.Value{}, errWrongArity("COMMAND|COUNT")
		}
		return resp.MakeInteger(int64(len(commandRegistry))), nil
	case "INFO":
		if len(names) == 0 {
			return getAllCommands(), nil
		}
		return getCommandsInfo(names), nil
	case "DOCS":
		return getCommandsDocs(names), nil
	default:
		return resp.Value{}, errSyntax()
	}
}
