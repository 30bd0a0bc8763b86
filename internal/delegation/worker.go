package delegation

import "context"

// worker consumes requests for one capability and delivers responses
// through the broker.
type worker struct {
	inbox   chan Request
	handler Handler
	broker  *Broker
}

func (w *worker) Start() {
	w.broker.wg.Add(1)
	go func() {
		defer w.broker.wg.Done()
		for {
			select {
			case req := <-w.inbox:
				resp := w.handler(context.Background(), req)
				resp.ID = req.ID
				resp.Kind = req.Kind
				w.broker.Deliver(resp)
			case <-w.broker.quit:
				return
			}
		}
	}()
}
