package subscriber

import (
	"context"
	"errors"
	"sort"

	"dogeow-realtime/internal/realtime"
)

var errNilHandler = errors.New("subscriber: nil handler")

func (s *implSubscriber) Attach(conn realtime.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = conn
}

// Subscribe binds h to event on ch. The channel is joined on the first binding.
func (s *implSubscriber) Subscribe(ctx context.Context, ch realtime.Channel, event string, h realtime.Handler) error {
	if h == nil {
		return errNilHandler
	}
	if err := ch.Validate(); err != nil {
		return err
	}
	wireEvent := realtime.WireEvent(event, s.namespace)
	wireChannel := ch.WireName()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.detached {
		return realtime.ErrConnectionClosed
	}
	if s.conn == nil {
		return realtime.ErrNotAttached
	}

	entry, joined := s.channels[wireChannel]
	if joined {
		if _, dup := entry.bindings[wireEvent]; dup {
			return realtime.ErrAlreadySubscribed
		}
	} else {
		if err := s.conn.Join(ctx, ch); err != nil {
			s.logger.Warnf(ctx, "subscriber: join %s failed: %v", wireChannel, err)
			return &realtime.ConnectionError{Op: "join " + wireChannel, Err: err}
		}
		s.joins.Add(1)
		entry = &channelEntry{
			ch:       ch,
			bindings: make(map[string]realtime.Handler),
			events:   make(map[string]string),
		}
		s.channels[wireChannel] = entry
	}

	entry.bindings[wireEvent] = h
	entry.events[wireEvent] = event
	s.subscribes.Add(1)
	s.logger.Debugf(ctx, "subscriber: bound %s on %s", wireEvent, wireChannel)
	return nil
}

// Unsubscribe never fails: unknown bindings are ignored and leave errors are logged.
func (s *implSubscriber) Unsubscribe(ctx context.Context, ch realtime.Channel, event string) {
	wireEvent := realtime.WireEvent(event, s.namespace)
	wireChannel := ch.WireName()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.channels[wireChannel]
	if !ok {
		return
	}
	if _, ok := entry.bindings[wireEvent]; !ok {
		return
	}
	s.removeLocked(ctx, entry, wireEvent)
}

// removeLocked drops one binding and leaves the channel when it was the last.
func (s *implSubscriber) removeLocked(ctx context.Context, entry *channelEntry, wireEvent string) {
	wireChannel := entry.ch.WireName()
	delete(entry.bindings, wireEvent)
	delete(entry.events, wireEvent)
	s.unsubscribes.Add(1)
	s.logger.Debugf(ctx, "subscriber: unbound %s on %s", wireEvent, wireChannel)

	if len(entry.bindings) > 0 {
		return
	}
	delete(s.channels, wireChannel)
	s.leaves.Add(1)
	if s.conn == nil {
		return
	}
	if err := s.conn.Leave(ctx, entry.ch); err != nil {
		s.logger.Errorf(ctx, "subscriber: leave %s failed: %v", wireChannel, err)
	}
}

func (s *implSubscriber) Detach(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range s.channels {
		for wireEvent := range entry.bindings {
			s.removeLocked(ctx, entry, wireEvent)
		}
	}
	s.detached = true
}

// Dispatch runs on the transport's delivery goroutine. The handler is called
// without holding the lock so it may subscribe or unsubscribe.
func (s *implSubscriber) Dispatch(msg realtime.Message) {
	s.mu.Lock()
	var h realtime.Handler
	if entry, ok := s.channels[msg.Channel]; ok {
		h = entry.bindings[msg.Event]
	}
	s.mu.Unlock()

	ctx := context.Background()
	if h == nil {
		s.unrouted.Add(1)
		s.logger.Debugf(ctx, "subscriber: no binding for %s on %s", msg.Event, msg.Channel)
		return
	}

	s.dispatched.Add(1)
	s.invoke(ctx, h, msg)
}

func (s *implSubscriber) invoke(ctx context.Context, h realtime.Handler, msg realtime.Message) {
	defer func() {
		if r := recover(); r != nil {
			s.handlerPanics.Add(1)
			s.logger.Errorf(ctx, "subscriber: handler for %s on %s panicked: %v", msg.Event, msg.Channel, r)
		}
	}()
	h(ctx, msg)
}

func (s *implSubscriber) Bindings() []realtime.ChannelSubscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]realtime.ChannelSubscription, 0, len(s.channels))
	for wireChannel, entry := range s.channels {
		for _, event := range entry.events {
			out = append(out, realtime.ChannelSubscription{
				Channel: wireChannel,
				Event:   event,
				Active:  true,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Channel != out[j].Channel {
			return out[i].Channel < out[j].Channel
		}
		return out[i].Event < out[j].Event
	})
	return out
}

func (s *implSubscriber) Stats() realtime.SubscriberStats {
	s.mu.Lock()
	bindings := 0
	for _, entry := range s.channels {
		bindings += len(entry.bindings)
	}
	channels := len(s.channels)
	s.mu.Unlock()

	return realtime.SubscriberStats{
		ActiveBindings: bindings,
		ActiveChannels: channels,
		Subscribes:     s.subscribes.Load(),
		Unsubscribes:   s.unsubscribes.Load(),
		Joins:          s.joins.Load(),
		Leaves:         s.leaves.Load(),
		Dispatched:     s.dispatched.Load(),
		Unrouted:       s.unrouted.Load(),
		HandlerPanics:  s.handlerPanics.Load(),
	}
}
