package server

import (
	"github.com/eternalApril/starlight/internal/config"
)

// masterReplID is reported by INFO replication. No replication stream exists behind it
const masterReplID = "8371b4fb1155b71f4a04d3e1bc3e18c4a990aeeb"

// replication is the static replication descriptor of the server
type replication struct {
	master  config.Endpoint
	replica bool
}

func newReplication(cfg config.ReplicationConfig) (replication, error) {
	master, ok, err := cfg.Master()
	if err != nil {
		return replication{}, err
	}
	return replication{master: master, replica: ok}, nil
}

func (r replication) role() string {
	if r.replica {
		return "slave"
	}
	return "master"
}

func (r replication) writeInfo(w *infoWriter) {
	w.field("role", r.role())
	if r.replica {
		w.field("master_host", r.master.Host)
		w.field("master_port", r.master.Port)
		w.field("master_link_status", "down")
	}
	w.field("master_replid", masterReplID)
	w.field("master_repl_offset", 0)
}
