package delegation

import (
	"context"
	"errors"

	"github.com/zombor/expense-cfo/internal/extraction"
	"github.com/zombor/expense-cfo/internal/interpretation"
	"github.com/zombor/expense-cfo/internal/notify"
)

// ExtractHandler wraps a direct extractor as a delegated worker handler.
func ExtractHandler(ex extraction.Extractor) Handler {
	return func(ctx context.Context, req Request) Response {
		text, err := ex.ExtractText(ctx, req.ImageURL)
		resp := Response{Text: text}
		if err != nil {
			resp.Err = err.Error()
		}
		return resp
	}
}

// InterpretHandler wraps a direct interpreter as a delegated worker handler.
func InterpretHandler(in interpretation.Interpreter) Handler {
	return func(ctx context.Context, req Request) Response {
		result, err := in.Interpret(ctx, req.RawText, req.PriorAnswer)
		resp := Response{Result: result}
		if err != nil {
			resp.Err = err.Error()
		}
		return resp
	}
}

// NotifyHandler wraps a direct notifier as a delegated worker handler.
func NotifyHandler(n notify.Notifier) Handler {
	return func(ctx context.Context, req Request) Response {
		var resp Response
		if err := n.Send(ctx, req.UserID, req.Message); err != nil {
			resp.Err = err.Error()
		}
		return resp
	}
}

// Extractor implements extraction.Extractor over a Broker, making
// delegated extraction a drop-in substitute for a direct call.
type Extractor struct {
	broker *Broker
}

// NewExtractor creates a delegated Extractor.
func NewExtractor(broker *Broker) *Extractor {
	return &Extractor{broker: broker}
}

// ExtractText submits an extraction request and waits for its response.
func (e *Extractor) ExtractText(ctx context.Context, imageURL string) (string, error) {
	resp, err := e.broker.Submit(ctx, Request{Kind: KindExtract, ImageURL: imageURL})
	if err != nil {
		return "", err
	}
	if resp.Err != "" {
		return "", errors.New(resp.Err)
	}
	return resp.Text, nil
}

// Close is a no-op; the broker owns the underlying extractor.
func (e *Extractor) Close() error {
	return nil
}

// Interpreter implements interpretation.Interpreter over a Broker.
type Interpreter struct {
	broker *Broker
}

// NewInterpreter creates a delegated Interpreter.
func NewInterpreter(broker *Broker) *Interpreter {
	return &Interpreter{broker: broker}
}

// Interpret submits an interpretation request and waits for its response.
func (i *Interpreter) Interpret(ctx context.Context, rawText, priorAnswer string) (interpretation.Result, error) {
	resp, err := i.broker.Submit(ctx, Request{
		Kind:        KindInterpret,
		RawText:     rawText,
		PriorAnswer: priorAnswer,
	})
	if err != nil {
		return interpretation.Result{}, err
	}
	if resp.Err != "" {
		return interpretation.Result{}, errors.New(resp.Err)
	}
	return resp.Result, nil
}

// Close is a no-op; the broker owns the underlying interpreter.
func (i *Interpreter) Close() error {
	return nil
}

// Notifier implements notify.Notifier over a Broker.
type Notifier struct {
	broker *Broker
}

// NewNotifier creates a delegated Notifier.
func NewNotifier(broker *Broker) *Notifier {
	return &Notifier{broker: broker}
}

// Send submits a notification request and waits for its response.
func (n *Notifier) Send(ctx context.Context, userID, message string) error {
	resp, err := n.broker.Submit(ctx, Request{
		Kind:    KindNotify,
		UserID:  userID,
		Message: message,
	})
	if err != nil {
		return err
	}
	if resp.Err != "" {
		return errors.New(resp.Err)
	}
	return nil
}
