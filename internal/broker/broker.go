// Package broker fans out payloads published on a topic to every live subscriber of that topic.
package broker

import "sync"

// SubscriberBuffer is how many undelivered payloads a subscriber may lag behind before it is dropped.
const SubscriberBuffer = 16

type publication[TID comparable, TPayload any] struct {
	ID      TID
	Payload TPayload
}

type subscription[TID comparable, TPayload any] struct {
	ID      TID
	Channel chan TPayload
}

// Broker delivers every payload published for an ID to all channels subscribed to that ID at the time.
//
// It is useful for streaming chat messages through SSE. The producer is the HTTP handler that persists a new
// message and the consumers are the open event streams of the chat participants. Subscribers that fall more than
// SubscriberBuffer payloads behind get their channel closed so that a stuck client never blocks the producer.
// They can resolve the situation by reconnecting and fetching the persisted history from the database.
type Broker[TID comparable, TPayload any] struct {
	stopChannel        chan struct{}
	stopOnce           sync.Once
	publishChannel     chan publication[TID, TPayload]
	subscribeChannel   chan subscription[TID, TPayload]
	unsubscribeChannel chan subscription[TID, TPayload]
}

// New creates a Broker. Run Start in a goroutine and call Stop to end it.
func New[TID comparable, TPayload any]() *Broker[TID, TPayload] {
	return &Broker[TID, TPayload]{ //nolint:exhaustruct // zero sync.Once is ready to use
		stopChannel:        make(chan struct{}),
		publishChannel:     make(chan publication[TID, TPayload]),
		subscribeChannel:   make(chan subscription[TID, TPayload]),
		unsubscribeChannel: make(chan subscription[TID, TPayload]),
	}
}

// Start listening for publish, subscribe, and unsubscribe events. This function blocks until Stop() is called,
// so it should be called in a goroutine. All subscriber channels are closed when it returns.
func (b *Broker[TID, TPayload]) Start() {
	subscribers := map[TID]map[chan TPayload]struct{}{}
	remove := func(id TID, c chan TPayload) {
		if _, ok := subscribers[id][c]; !ok {
			return
		}
		close(c)
		delete(subscribers[id], c)
		if len(subscribers[id]) == 0 {
			delete(subscribers, id)
		}
	}
	for {
		select {
		case <-b.stopChannel:
			for id, channels := range subscribers {
				for c := range channels {
					remove(id, c)
				}
			}
			return

		case sub := <-b.subscribeChannel:
			if subscribers[sub.ID] == nil {
				subscribers[sub.ID] = map[chan TPayload]struct{}{}
			}
			subscribers[sub.ID][sub.Channel] = struct{}{}

		case sub := <-b.unsubscribeChannel:
			remove(sub.ID, sub.Channel)

		case pub := <-b.publishChannel:
			for c := range subscribers[pub.ID] {
				select {
				case c <- pub.Payload:
				default:
					// Slow subscriber
					remove(pub.ID, c)
				}
			}
		}
	}
}

// Stop the goroutine that handles the broker. It is safe to call more than once.
func (b *Broker[TID, TPayload]) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopChannel)
	})
}

// Subscribe to payloads published for id from now on. The returned channel is closed when the subscriber is
// dropped, unsubscribed, or the broker stops. Call the returned function to unsubscribe.
func (b *Broker[TID, TPayload]) Subscribe(id TID) (<-chan TPayload, func()) {
	sub := subscription[TID, TPayload]{ID: id, Channel: make(chan TPayload, SubscriberBuffer)}
	select {
	case b.subscribeChannel <- sub:
	case <-b.stopChannel:
		close(sub.Channel)
		return sub.Channel, func() {}
	}
	return sub.Channel, func() {
		select {
		case b.unsubscribeChannel <- sub:
		case <-b.stopChannel:
		}
	}
}

// Publish payload to the current subscribers of id. Publishing after Stop is a no-op.
func (b *Broker[TID, TPayload]) Publish(id TID, payload TPayload) {
	select {
	case b.publishChannel <- publication[TID, TPayload]{ID: id, Payload: payload}:
	case <-b.stopChannel:
	}
}
