package session

import "github.com/rickgao/ddp-client/internal/protocol"

// stage is one step of the inbound pipeline.
type stage func(sock *socket, msg protocol.Message)

// buildPipeline orders the inbound handlers. Subscriptions and queries
// restore themselves on connected before replay drains the queue.
func (s *Session) buildPipeline() []stage {
	return []stage{
		s.handleConnection,
		s.methods.handle,
		s.subs.handle,
		s.queries.handle,
		s.replay,
	}
}

// dispatch runs an inbound message through the pipeline.
func (s *Session) dispatch(id string, gen uint64, msg protocol.Message) {
	sock := s.live(id, gen)
	if sock == nil {
		return
	}
	s.metrics.FrameReceived(string(msg.Msg))
	for _, st := range s.pipeline {
		st(sock, msg)
	}
}

// replay drains the queue once the socket is connected. It runs after
// subscriptions and queries have been restored.
func (s *Session) replay(sock *socket, msg protocol.Message) {
	if msg.Msg != protocol.KindConnected || sock.state != Connected {
		return
	}

	pending := sock.queue
	sock.queue = nil
	for i, ob := range pending {
		if err := s.write(sock, ob.msg); err != nil {
			s.logger.Warn("replay failed, requeueing", "socket", sock.id, "remaining", len(pending)-i, "error", err)
			sock.queue = pending[i:]
			s.abort(sock)
			break
		}
		if ob.sent != nil {
			ob.sent(sock.gen)
		}
		s.metrics.Replayed(sock.id, 1)
	}
	s.metrics.QueueDepth(sock.id, len(sock.queue))
}
