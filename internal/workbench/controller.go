package workbench

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	draftdomain "github.com/smallbiznis/cbam/internal/draft/domain"
	emissiondomain "github.com/smallbiznis/cbam/internal/emission/domain"
	"github.com/smallbiznis/cbam/internal/export"
	reportdomain "github.com/smallbiznis/cbam/internal/report/domain"
	"github.com/smallbiznis/cbam/internal/session"
	"go.uber.org/zap"
)

// Sessions is the part of session.Manager the controller needs.
type Sessions interface {
	GetCurrentSession(ctx context.Context) (*session.UserSession, error)
	OnSessionChange(handler func(*session.UserSession)) (cancel func())
}

// Documents renders exports.
type Documents interface {
	PDF(result emissiondomain.CalculationResult, reportID string) ([]byte, error)
	XML(result emissiondomain.CalculationResult) ([]byte, error)
}

type Config struct {
	Log       *zap.Logger
	Slot      string
	Drafts    draftdomain.Service
	Emission  emissiondomain.Service
	Reports   reportdomain.Service
	Documents Documents
	Sessions  Sessions
}

// Document is a rendered export ready to be written out.
type Document struct {
	Name     string
	Data     []byte
	ReportID string
}

// View is a copy of the controller state.
type View struct {
	State          State
	Draft          draftdomain.FormDraft
	Classification emissiondomain.Classification
	Result         *emissiondomain.CalculationResult
	Session        *session.UserSession
}

type Controller struct {
	log       *zap.Logger
	slot      string
	drafts    draftdomain.Service
	emission  emissiondomain.Service
	reports   reportdomain.Service
	documents Documents
	sessions  Sessions

	exporting atomic.Bool
	cancelSub func()

	mu             sync.Mutex
	state          State
	draft          draftdomain.FormDraft
	classification emissiondomain.Classification
	result         *emissiondomain.CalculationResult
	session        *session.UserSession
}

// New builds a closed controller and subscribes it to session changes.
func New(cfg Config) *Controller {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	slot := cfg.Slot
	if slot == "" {
		slot = draftdomain.DefaultSlot
	}
	c := &Controller{
		log:       log.Named("workbench"),
		slot:      slot,
		drafts:    cfg.Drafts,
		emission:  cfg.Emission,
		reports:   cfg.Reports,
		documents: cfg.Documents,
		sessions:  cfg.Sessions,
		state:     StateClosed,
		draft:     draftdomain.Empty(),
	}
	if c.sessions != nil {
		c.cancelSub = c.sessions.OnSessionChange(c.onSessionChange)
	}
	return c
}

// Stop drops the session subscription.
func (c *Controller) Stop() {
	if c.cancelSub != nil {
		c.cancelSub()
	}
}

func (c *Controller) onSessionChange(sess *session.UserSession) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = sess
	if sess != nil && c.state == StateAuthRequired {
		c.state = c.settledState()
	}
}

// settledState is where the form rests when nothing is in flight.
func (c *Controller) settledState() State {
	if c.result != nil {
		return StateCalculated
	}
	return StateOpen
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := View{
		State:          c.state,
		Draft:          c.draft.Clone(),
		Classification: c.classification,
	}
	if c.result != nil {
		r := *c.result
		v.Result = &r
	}
	if c.session != nil {
		s := *c.session
		v.Session = &s
	}
	return v
}

// Open restores the saved draft into the form. A corrupt draft is logged and
// replaced by a blank form.
func (c *Controller) Open(ctx context.Context) (View, error) {
	restored, err := c.drafts.Restore(ctx, c.slot)
	if err != nil && !errors.Is(err, draftdomain.ErrDraftCorrupt) {
		return View{}, err
	}

	c.mu.Lock()
	c.draft = restored.Draft
	c.classification = restored.Classification
	if c.state == StateClosed {
		c.state = c.settledState()
	}
	c.mu.Unlock()
	return c.View(), nil
}

func (c *Controller) Close() {
	c.mu.Lock()
	c.state = StateClosed
	c.mu.Unlock()
}

// edit applies fn to the draft and saves the result best effort.
func (c *Controller) edit(ctx context.Context, fn func(draftdomain.FormDraft) (draftdomain.FormDraft, error)) error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return ErrClosed
	}
	next, err := fn(c.draft)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.draft = next
	c.classification = c.emission.Validate(next.CNCode)
	snapshot := next.Clone()
	c.mu.Unlock()

	if err := c.drafts.Save(ctx, c.slot, snapshot); err != nil {
		c.log.Warn("draft not saved", zap.Error(err))
	}
	return nil
}

func (c *Controller) SetField(ctx context.Context, name, value string) error {
	return c.edit(ctx, func(d draftdomain.FormDraft) (draftdomain.FormDraft, error) {
		return d.WithField(name, value)
	})
}

func (c *Controller) TogglePrecursors(ctx context.Context) error {
	return c.edit(ctx, func(d draftdomain.FormDraft) (draftdomain.FormDraft, error) {
		return d.WithPrecursorSection(!d.PrecursorActive), nil
	})
}

func (c *Controller) AddPrecursor(ctx context.Context) error {
	return c.edit(ctx, func(d draftdomain.FormDraft) (draftdomain.FormDraft, error) {
		return d.WithPrecursorAdded(), nil
	})
}

func (c *Controller) RemovePrecursor(ctx context.Context, i int) error {
	return c.edit(ctx, func(d draftdomain.FormDraft) (draftdomain.FormDraft, error) {
		return d.WithPrecursorRemoved(i)
	})
}

func (c *Controller) UpdatePrecursor(ctx context.Context, i int, row draftdomain.PrecursorDraft) error {
	return c.edit(ctx, func(d draftdomain.FormDraft) (draftdomain.FormDraft, error) {
		return d.WithPrecursorUpdated(i, row)
	})
}

// Calculate runs the calculator on the current form. A rejected input leaves
// the form open and clears any earlier result.
func (c *Controller) Calculate(ctx context.Context) (emissiondomain.CalculationResult, error) {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return emissiondomain.CalculationResult{}, ErrClosed
	}
	input := c.draft.Input()
	c.mu.Unlock()

	result, err := c.emission.Calculate(ctx, input)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.result = nil
	} else {
		c.result = &result
	}
	// A running export settles the state itself when it finishes.
	if c.state != StateClosed && c.state != StateExporting {
		c.state = c.settledState()
	}
	if err != nil {
		return emissiondomain.CalculationResult{}, err
	}
	return result, nil
}

// ExportPDF saves the calculated report for the signed-in user and renders it.
// Only one export runs at a time; a concurrent call fails without writing.
func (c *Controller) ExportPDF(ctx context.Context) (Document, error) {
	if !c.exporting.CompareAndSwap(false, true) {
		return Document{}, ErrExportInProgress
	}
	defer c.exporting.Store(false)

	c.mu.Lock()
	if c.result == nil {
		c.mu.Unlock()
		return Document{}, ErrNotCalculated
	}
	result := *c.result
	input := c.draft.Input()
	c.mu.Unlock()

	sess, err := c.sessions.GetCurrentSession(ctx)
	if err != nil {
		return Document{}, err
	}
	if sess == nil {
		c.transition(StateAuthRequired)
		return Document{}, ErrAuthRequired
	}

	if !c.transition(StateExporting) {
		return Document{}, ErrClosed
	}
	defer c.settleAfterExport()

	report, err := c.reports.SaveReport(ctx, reportdomain.SaveRequest{
		OwnerID: sess.UserID,
		Input:   input,
		Result:  result,
	})
	if err != nil {
		return Document{}, err
	}

	reportID := report.ID.String()
	data, err := c.documents.PDF(result, reportID)
	if err != nil {
		return Document{}, err
	}
	c.log.Info("report exported", zap.String("report_id", reportID))
	return Document{
		Name:     export.FileName(export.KindPDF, result.CNCode, reportID),
		Data:     data,
		ReportID: reportID,
	}, nil
}

// ExportXML renders the calculated result. No session is needed.
func (c *Controller) ExportXML(context.Context) (Document, error) {
	c.mu.Lock()
	if c.result == nil {
		c.mu.Unlock()
		return Document{}, ErrNotCalculated
	}
	result := *c.result
	c.mu.Unlock()

	data, err := c.documents.XML(result)
	if err != nil {
		return Document{}, err
	}
	return Document{
		Name: export.FileName(export.KindXML, result.CNCode, ""),
		Data: data,
	}, nil
}

// transition moves an open controller to s. It reports false when the
// controller was closed.
func (c *Controller) transition(s State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return false
	}
	c.state = s
	return true
}

func (c *Controller) settleAfterExport() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateExporting {
		c.state = c.settledState()
	}
}
