package peer

import (
	"bytes"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/lightningnetwork/lnchannel/lnwire"
)

// wireVersion is the protocol version passed to lnwire's Encode/Decode.
// This protocol has never needed more than one.
const wireVersion = 0

// expiryPollInterval is how often the event loop checks this side's
// originated HTLCs against the wall clock for expiry.
const expiryPollInterval = time.Second

// Run drives the peer's event loop against transport until Stop is called
// or transport.Recv returns an error. It decodes and dispatches inbound
// messages, writes queued outbound messages to transport, cuts a commit
// whenever the coalescing timer fires, and periodically fails any staged
// HTLC this side originated that has passed its expiry. It blocks the
// calling goroutine; callers typically invoke it as `go p.Run(transport)`.
func (p *Peer) Run(transport Transport) error {
	recvErr := make(chan error, 1)
	recvMsg := make(chan lnwire.Message, 1)
	go func() {
		for {
			raw, err := transport.Recv()
			if err != nil {
				recvErr <- err
				return
			}
			msg, err := lnwire.ReadMessage(bytes.NewReader(raw), wireVersion)
			if err != nil {
				recvErr <- err
				return
			}
			recvMsg <- msg
		}
	}()

	expiryTicks := p.clk.TickAfter(expiryPollInterval)

	for {
		select {
		case <-p.quit:
			return nil

		case err := <-recvErr:
			p.sendError(err.Error())
			return err

		case msg := <-recvMsg:
			log.Tracef("read message from peer: %v", newLogClosure(func() string {
				return spew.Sdump(msg)
			}))
			if err := p.dispatchSafely(msg); err != nil {
				return err
			}

		case out := <-p.Outbound():
			wireMsg, ok := out.(lnwire.Message)
			if !ok {
				fatalf("queued non-message value %T on outbox", out)
			}
			log.Tracef("writing message to peer: %v", newLogClosure(func() string {
				return spew.Sdump(wireMsg)
			}))
			var buf bytes.Buffer
			if _, err := lnwire.WriteMessage(&buf, wireMsg, wireVersion); err != nil {
				fatalf("encoding outbound %T: %v", wireMsg, err)
			}
			if err := transport.Send(buf.Bytes()); err != nil {
				return err
			}

		case <-p.commitTimer.Ticks():
			if err := p.SendCommit(); err != nil {
				log.Debugf("commit tick produced no-op: %v", err)
			}

		case now := <-expiryTicks:
			p.checkExpiries(now)
			expiryTicks = p.clk.TickAfter(expiryPollInterval)
		}
	}
}

// dispatchSafely runs Dispatch, converting a FatalError panic into a
// returned error rather than letting it cross Run's goroutine boundary
// uncaught.
func (p *Peer) dispatchSafely(msg lnwire.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if fe, ok := r.(*FatalError); ok {
				err = fe
				return
			}
			panic(r)
		}
	}()
	return p.Dispatch(msg)
}

// checkExpiries fails every staged HTLC this side originated whose expiry
// has passed as of now.
func (p *Peer) checkExpiries(now time.Time) {
	for id, expiry := range p.htlcExpiries {
		if now.Before(expiry) {
			continue
		}
		if err := p.failExpiredHTLC(id); err != nil {
			log.Errorf("failing expired htlc %d: %v", id, err)
			continue
		}
		delete(p.htlcExpiries, id)
	}
}
