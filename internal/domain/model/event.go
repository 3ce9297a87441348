package model

// Event is an immutable fact. Its ID is assigned by the store and orders
// events in time.
type Event struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	ProblemID int       `json:"problem_id"`
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"` // milliseconds since epoch
}

// EventBearer is a record stored as an Event plus a payload row that
// references the Event's generated id.
type EventBearer interface {
	GetEvent() *Event
	SetEventID(id int)
}

// MaxTextLenInRow is the length from which change text is stored out of line.
const MaxTextLenInRow = 80

type Change struct {
	EventID     int        `json:"event_id"`
	Type        ChangeType `json:"type"`
	StartRow    int        `json:"start_row"`
	EndRow      int        `json:"end_row"`
	StartColumn int        `json:"start_column"`
	EndColumn   int        `json:"end_column"`
	Text        string     `json:"text"`
	Event       Event      `json:"event"`
}

func (c *Change) GetEvent() *Event  { return &c.Event }
func (c *Change) SetEventID(id int) { c.EventID = id; c.Event.ID = id }

type SubmissionReceipt struct {
	EventID           int              `json:"event_id"`
	LastEditEventID   int              `json:"last_edit_event_id"` // -1 when there is no edit
	Status            SubmissionStatus `json:"status"`
	NumTestsAttempted int              `json:"num_tests_attempted"`
	NumTestsPassed    int              `json:"num_tests_passed"`
	Event             Event            `json:"event"`
}

func (r *SubmissionReceipt) GetEvent() *Event  { return &r.Event }
func (r *SubmissionReceipt) SetEventID(id int) { r.EventID = id; r.Event.ID = id }

// NewSubmissionReceipt builds an unsaved receipt for user/problem.
func NewSubmissionReceipt(userID, problemID int, timestamp int64, status SubmissionStatus, lastEditEventID, attempted, passed int) *SubmissionReceipt {
	return &SubmissionReceipt{
		LastEditEventID:   lastEditEventID,
		Status:            status,
		NumTestsAttempted: attempted,
		NumTestsPassed:    passed,
		Event: Event{
			UserID:    userID,
			ProblemID: problemID,
			Type:      EventSubmit,
			Timestamp: timestamp,
		},
	}
}

type TestResult struct {
	ID                       int         `json:"id"`
	SubmissionReceiptEventID int         `json:"submission_receipt_event_id"`
	Outcome                  TestOutcome `json:"outcome"`
	Message                  string      `json:"message"`
	Stdout                   string      `json:"stdout"`
	Stderr                   string      `json:"stderr"`
}
