package expense

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/zombor/expense-cfo/internal/extraction"
	"github.com/zombor/expense-cfo/internal/interpretation"
	"github.com/zombor/expense-cfo/internal/notify"
)

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Status values of a workflow outcome.
type Status string

const (
	StatusCompleted     Status = "completed"
	StatusAwaitingReply Status = "awaiting_reply"
	StatusFailed        Status = "failed"
	StatusGreeted       Status = "greeted"
)

// Failure reasons carried by failed outcomes.
const (
	FailureExtraction     = "extraction"
	FailureInterpretation = "interpretation"
	FailureUnresolved     = "unresolved after clarification"
)

// Outcome is the JSON-serializable result of processing one inbound event.
type Outcome struct {
	Status   Status  `json:"status"`
	Record   *Record `json:"record,omitempty"`
	Question string  `json:"question,omitempty"`
	Error    string  `json:"error,omitempty"`
}

const (
	greetingMessage   = "Hi! I'm your Conversational CFO. Send me a receipt image and I'll help you track the expense."
	extractionApology = "Sorry, I couldn't read the receipt image. Please try uploading a clearer photo."
	unresolvedMessage = "Sorry, I still couldn't complete the receipt after your reply. Please resubmit the receipt image."
)

// Coordinator drives the receipt workflow: it classifies each inbound
// event, invokes the extraction and interpretation providers, maintains
// the session store and usage ledger, and notifies the user of the result.
type Coordinator struct {
	sessions    SessionStore
	ledger      UsageLedger
	extractor   extraction.Extractor
	interpreter interpretation.Interpreter
	notifier    notify.Notifier
	costs       CostModel
	timeSource  TimeSource
	locks       *userLocks
}

// NewCoordinator creates a Coordinator with the default time source.
func NewCoordinator(sessions SessionStore, ledger UsageLedger, extractor extraction.Extractor, interpreter interpretation.Interpreter, notifier notify.Notifier, costs CostModel) *Coordinator {
	return NewCoordinatorWithDeps(sessions, ledger, extractor, interpreter, notifier, costs, &defaultTimeSource{})
}

// NewCoordinatorWithDeps creates a Coordinator with a custom time source
// for testing.
func NewCoordinatorWithDeps(sessions SessionStore, ledger UsageLedger, extractor extraction.Extractor, interpreter interpretation.Interpreter, notifier notify.Notifier, costs CostModel, timeSource TimeSource) *Coordinator {
	return &Coordinator{
		sessions:    sessions,
		ledger:      ledger,
		extractor:   extractor,
		interpreter: interpreter,
		notifier:    notifier,
		costs:       costs,
		timeSource:  timeSource,
		locks:       newUserLocks(),
	}
}

// Process handles one inbound event for a user. Events for the same user
// are serialized so a new receipt cannot race with the consumption of
// that user's pending session; events for different users run
// concurrently.
func (c *Coordinator) Process(ctx context.Context, userID, message, imageURL string) (Outcome, error) {
	if userID == "" {
		return Outcome{}, fmt.Errorf("user id is required")
	}

	unlock := c.locks.lock(userID)
	defer unlock()

	// Scenario 1: a new receipt image takes priority over everything,
	// abandoning any in-flight clarification.
	if imageURL != "" {
		return c.processNewReceipt(ctx, userID, imageURL)
	}

	// Scenario 2: no image, but a clarification is pending
	session, ok, err := c.sessions.Take(userID)
	if err != nil {
		return Outcome{}, fmt.Errorf("taking session: %w", err)
	}
	if ok {
		return c.processClarification(ctx, userID, message, session)
	}

	// Scenario 3: plain message with nothing pending
	slog.Info("Sending greeting", "user_id", userID)
	c.send(ctx, userID, greetingMessage)
	return Outcome{Status: StatusGreeted}, nil
}

func (c *Coordinator) processNewReceipt(ctx context.Context, userID, imageURL string) (Outcome, error) {
	if _, ok, err := c.sessions.Take(userID); err != nil {
		return Outcome{}, fmt.Errorf("taking session: %w", err)
	} else if ok {
		slog.Info("Abandoning pending clarification", "user_id", userID)
	}

	rawText, err := c.extractor.ExtractText(ctx, imageURL)
	if err != nil {
		slog.Error("Extraction failed",
			"user_id", userID,
			"image_url", imageURL,
			"error", err,
		)
		c.send(ctx, userID, extractionApology)
		return Outcome{Status: StatusFailed, Error: FailureExtraction}, nil
	}
	c.recordUsage(c.costs.ExtractionEntry(userID, rawText, c.timeSource.Now()))

	result, err := c.interpreter.Interpret(ctx, rawText, "")
	if err != nil {
		slog.Error("Interpretation failed", "user_id", userID, "error", err)
		c.send(ctx, userID, "Sorry, I encountered an error processing the receipt: "+err.Error())
		return Outcome{Status: StatusFailed, Error: FailureInterpretation}, nil
	}
	c.recordUsage(c.costs.InterpretationEntry(userID, rawText, c.timeSource.Now()))

	switch result.Status {
	case interpretation.StatusComplete:
		record := recordFrom(result.Record)
		c.send(ctx, userID, record.Summary())
		return Outcome{Status: StatusCompleted, Record: &record}, nil

	case interpretation.StatusNeedsClarification:
		session := Session{RawText: rawText, CreatedAt: c.timeSource.Now()}
		if err := c.sessions.Put(userID, session); err != nil {
			return Outcome{}, fmt.Errorf("storing session: %w", err)
		}
		c.send(ctx, userID, result.Question)
		return Outcome{Status: StatusAwaitingReply, Question: result.Question}, nil

	default:
		slog.Error("Interpretation returned unusable output", "user_id", userID, "detail", result.Detail)
		c.send(ctx, userID, "Sorry, I encountered an error processing the receipt: "+result.Detail)
		return Outcome{Status: StatusFailed, Error: FailureInterpretation}, nil
	}
}

func (c *Coordinator) processClarification(ctx context.Context, userID, message string, session Session) (Outcome, error) {
	result, err := c.interpreter.Interpret(ctx, session.RawText, message)
	if err != nil {
		slog.Error("Interpretation failed", "user_id", userID, "error", err)
		c.send(ctx, userID, "Sorry, I had trouble finalizing the receipt: "+err.Error())
		return Outcome{Status: StatusFailed, Error: FailureInterpretation}, nil
	}
	c.recordUsage(c.costs.InterpretationEntry(userID, session.RawText, c.timeSource.Now()))

	switch result.Status {
	case interpretation.StatusComplete:
		record := recordFrom(result.Record)
		c.send(ctx, userID, record.Summary())
		return Outcome{Status: StatusCompleted, Record: &record}, nil

	case interpretation.StatusNeedsClarification:
		// Exactly one clarification round per receipt. The session is not
		// recreated; the user has to start over with a new image.
		slog.Warn("Still unresolved after clarification", "user_id", userID)
		c.send(ctx, userID, unresolvedMessage)
		return Outcome{Status: StatusFailed, Error: FailureUnresolved}, nil

	default:
		slog.Error("Interpretation returned unusable output", "user_id", userID, "detail", result.Detail)
		c.send(ctx, userID, "Sorry, I had trouble finalizing the receipt: "+result.Detail)
		return Outcome{Status: StatusFailed, Error: FailureInterpretation}, nil
	}
}

// send delivers a notification. A delivery failure never rolls back the
// already-computed outcome.
func (c *Coordinator) send(ctx context.Context, userID, message string) {
	if err := c.notifier.Send(ctx, userID, message); err != nil {
		slog.Error("Failed to send notification", "user_id", userID, "error", err)
	}
}

func (c *Coordinator) recordUsage(entry UsageEntry) {
	if err := c.ledger.Record(entry); err != nil {
		slog.Error("Failed to record usage entry",
			"user_id", entry.UserID,
			"operation", entry.Operation,
			"error", err,
		)
	}
}

func recordFrom(record interpretation.Record) Record {
	return Record{
		Vendor:      record.Vendor,
		Amount:      record.Amount,
		Date:        record.Date,
		Category:    record.Category,
		ExpenseType: record.ExpenseType,
	}
}

// userLocks serializes event processing per user id. Mutexes are created
// on first contact and never released, so the map grows with the number
// of distinct users seen over the process lifetime.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *userLocks) lock(userID string) func() {
	l.mu.Lock()
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
