package session

import (
	"encoding/json"
	"sort"

	"github.com/rickgao/ddp-client/internal/protocol"
)

// QueryState is the lifecycle state of a query.
type QueryState int

const (
	QueryPending QueryState = iota
	QueryReady
)

func (s QueryState) String() string {
	switch s {
	case QueryPending:
		return "pending"
	case QueryReady:
		return "ready"
	}
	return "unknown"
}

// QueryInfo is a snapshot of a query.
type QueryInfo struct {
	ID       string
	Name     string
	Params   json.RawMessage
	SocketID string
	State    QueryState
	Users    int
	Entities json.RawMessage
	Err      *protocol.Error
}

type query struct {
	id       string
	seq      uint64
	key      string
	name     string
	params   json.RawMessage
	socket   string
	state    QueryState
	users    int
	entities json.RawMessage
	err      *protocol.Error

	callID  string // latest method call; older results are ignored
	sentGen uint64
	queued  bool // method frame of callID is waiting in the socket queue

	cleanup uint64
	ready   chan struct{}
	isReady bool
}

func (q *query) markReady() {
	q.state = QueryReady
	if !q.isReady {
		q.isReady = true
		close(q.ready)
	}
}

// queries tracks ref-counted, deduplicated method-backed queries.
type queries struct {
	s     *Session
	byID  map[string]*query
	byKey map[string]*query
	seq   uint64
}

func newQueries(s *Session) *queries {
	return &queries{
		s:     s,
		byID:  make(map[string]*query),
		byKey: make(map[string]*query),
	}
}

func queryCleanupKey(id string) string {
	return "query/" + id
}

func (m *queries) request(socketID, name string, params json.RawMessage) string {
	key := entryKey(name, params, socketID)
	if q, ok := m.byKey[key]; ok {
		q.users++
		q.cleanup++
		m.s.sched.Cancel(queryCleanupKey(q.id))
		return q.id
	}

	m.seq++
	q := &query{
		id:     m.s.nextID(),
		seq:    m.seq,
		key:    key,
		name:   name,
		params: params,
		socket: socketID,
		state:  QueryPending,
		users:  1,
		ready:  make(chan struct{}),
	}
	m.byID[q.id] = q
	m.byKey[key] = q
	m.s.metrics.Queries(len(m.byID))

	m.fetch(q)
	return q.id
}

// fetch issues the query method call. Only the latest call may settle the
// query; a superseded call is forgotten and, if still queued, never sent.
func (m *queries) fetch(q *query) {
	m.forgetCall(q)

	callID := m.s.nextID()
	q.callID = callID
	q.sentGen = 0
	q.queued = true
	m.s.methods.call(callID, q.socket, q.name, q.params,
		func(result json.RawMessage, err error) {
			m.settle(q.id, callID, result, err)
		},
		func(gen uint64) {
			if q.callID == callID {
				q.sentGen = gen
				q.queued = false
			}
		},
	)
}

func (m *queries) forgetCall(q *query) {
	if q.callID == "" {
		return
	}
	m.s.methods.forget(q.callID)
	if q.queued {
		m.s.unqueue(q.socket, protocol.KindMethod, q.callID)
		q.queued = false
	}
}

func (m *queries) settle(id, callID string, result json.RawMessage, err error) {
	q, ok := m.byID[id]
	if !ok || q.callID != callID {
		return
	}

	if err != nil {
		q.err = protocol.Normalize(err)
		q.markReady()
		m.s.logger.Debug("query failed", "id", id, "name", q.name, "error", err)
		return
	}

	q.err = nil
	q.entities = m.s.extract(result)
	m.s.sink.Update(id, q.entities)
	q.markReady()
}

func (m *queries) release(id string) {
	q, ok := m.byID[id]
	if !ok || q.users == 0 {
		return
	}
	q.users--
	if q.users > 0 {
		return
	}

	q.cleanup++
	token := q.cleanup
	m.s.sched.Schedule(queryCleanupKey(id), m.s.cfg.QueryCleanupDelay, func() {
		m.s.post(func() { m.expire(id, token) })
	})
}

func (m *queries) expire(id string, token uint64) {
	q, ok := m.byID[id]
	if !ok || q.users > 0 || q.cleanup != token {
		return
	}
	delete(m.byID, id)
	delete(m.byKey, q.key)
	m.forgetCall(q)
	m.s.metrics.Queries(len(m.byID))

	m.s.sink.Retract(id, q.entities)
	m.s.logger.Debug("query removed", "id", id, "name", q.name)
}

func (m *queries) refetch(id string) error {
	q, ok := m.byID[id]
	if !ok {
		return ErrUnknownQuery
	}
	m.fetch(q)
	return nil
}

// dropQueued forgets the calls of queries whose socket was closed along
// with its queue.
func (m *queries) dropQueued(socketID string) {
	for _, q := range m.byID {
		if q.socket == socketID && q.queued {
			m.s.methods.forget(q.callID)
			q.queued = false
		}
	}
}

func (m *queries) cancelTimers() {
	for id, q := range m.byID {
		q.cleanup++
		m.s.sched.Cancel(queryCleanupKey(id))
	}
}

// handle refetches the queries of a socket after it reconnects: ready ones
// to refresh their entities and pending ones whose call went out on an
// earlier transport. Queries with a call still queued are left to replay.
func (m *queries) handle(sock *socket, msg protocol.Message) {
	if msg.Msg != protocol.KindConnected {
		return
	}

	var stale []*query
	for _, q := range m.byID {
		if q.socket != sock.id || q.queued {
			continue
		}
		lost := q.state == QueryPending && q.sentGen != 0 && q.sentGen != sock.gen
		if q.state == QueryReady || lost {
			stale = append(stale, q)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].seq < stale[j].seq })

	for _, q := range stale {
		m.fetch(q)
	}
	if len(stale) > 0 {
		m.s.logger.Info("queries refetched", "socket", sock.id, "count", len(stale))
	}
}

func (m *queries) info(id string) (QueryInfo, bool) {
	q, ok := m.byID[id]
	if !ok {
		return QueryInfo{}, false
	}
	return QueryInfo{
		ID:       q.id,
		Name:     q.name,
		Params:   q.params,
		SocketID: q.socket,
		State:    q.state,
		Users:    q.users,
		Entities: q.entities,
		Err:      q.err,
	}, true
}
