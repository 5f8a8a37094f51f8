package server

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/eternalApril/starlight/internal/resp"
)

// redisVersion is the protocol level advertised to clients
const redisVersion = "7.2.0"

// infoWriter accumulates "field:value" lines of one INFO reply
type infoWriter struct {
	b strings.Builder
}

func (w *infoWriter) section(title string) {
	if w.b.Len() > 0 {
		w.b.WriteString("\r\n")
	}
	w.b.WriteString("# ")
	w.b.WriteString(title)
	w.b.WriteString("\r\n")
}

func (w *infoWriter) field(name string, value any) {
	fmt.Fprintf(&w.b, "%s:%v\r\n", name, value)
}

type infoSection struct {
	name  string
	title string
	write func(e *Engine, w *infoWriter)
}

var infoSections = []infoSection{
	{"server", "Server", (*Engine).serverInfo},
	{"clients", "Clients", (*Engine).clientsInfo},
	{"stats", "Stats", (*Engine).statsInfo},
	{"replication", "Replication", (*Engine).replicationInfo},
	{"keyspace", "Keyspace", (*Engine).keyspaceInfo},
}

// info returns the requested section, every section when none is named,
// and an empty bulk string for an unknown section
func info(ctx *cmdContext) (resp.Value, error) {
	if len(ctx.args) > 1 {
		return resp.Value{}, errWrongArity("INFO")
	}

	section := "all"
	if len(ctx.args) == 1 {
		section = strings.ToLower(ctx.args[0].Text())
	}

	var w infoWriter
	for _, s := range infoSections {
		if section == "all" || section == "everything" || section == "default" || section == s.name {
			w.section(s.title)
			s.write(ctx.engine, &w)
		}
	}

	return resp.MakeBulkString(w.b.String()), nil
}

func (e *Engine) serverInfo(w *infoWriter) {
	uptime := time.Since(e.startedAt)

	w.field("redis_version", redisVersion)
	w.field("redis_mode", "standalone")
	w.field("os", runtime.GOOS+" "+runtime.GOARCH)
	w.field("go_version", runtime.Version())
	w.field("process_id", os.Getpid())
	w.field("tcp_port", e.port)
	w.field("uptime_in_seconds", int64(uptime.Seconds()))
	w.field("uptime_in_days", int64(uptime.Hours()/24))
}

func (e *Engine) clientsInfo(w *infoWriter) {
	w.field("connected_clients", e.connectedClients.Load())
}

func (e *Engine) statsInfo(w *infoWriter) {
	w.field("total_connections_received", e.totalConnections.Load())
	w.field("total_commands_processed", e.totalCommands.Load())
	w.field("expired_keys", e.storage.Stats().Evicted)
}

func (e *Engine) replicationInfo(w *infoWriter) {
	e.replication.writeInfo(w)
}

func (e *Engine) keyspaceInfo(w *infoWriter) {
	st := e.storage.Stats()
	if st.Keys == 0 {
		return
	}
	w.field("db0", fmt.Sprintf("keys=%d,expires=%d,avg_ttl=0", st.Keys, st.Expires))
}
