package printing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/kds/internal/ticket"
	"github.com/appetiteclub/kds/pkg/enums/station"
	"github.com/google/uuid"
)

// JobsResource is the print service collection that receives jobs.
const JobsResource = "print-jobs"

// PayloadEncoding tells the print service how to decode Job.Payload.
const PayloadEncoding = "escpos+base64"

var ErrNoPrinter = errors.New("no printer configured")

// JobClient creates resources on the print service. *apt.ServiceClient satisfies it.
type JobClient interface {
	Create(ctx context.Context, resource string, payload interface{}) (*apt.SuccessResponse, error)
}

// Job is one ticket sent to one printer.
type Job struct {
	ID         string    `json:"id"`
	PrinterID  string    `json:"printer_id"`
	LocationID string    `json:"location_id"`
	Station    string    `json:"station"`
	TicketID   string    `json:"ticket_id"`
	Encoding   string    `json:"encoding"`
	Payload    string    `json:"payload"`
	Preview    string    `json:"preview"`
	Rush       bool      `json:"rush"`
	CreatedAt  time.Time `json:"created_at"`
}

// Dispatcher formats tickets for the station printer and hands them to the
// print service. Delivery is fire and forget: nothing is retried here.
type Dispatcher struct {
	client    JobClient
	directory *Directory
	logger    apt.Logger
	now       func() time.Time
	newID     func() string
}

func NewDispatcher(client JobClient, directory *Directory, logger apt.Logger) *Dispatcher {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Dispatcher{
		client:    client,
		directory: directory,
		logger:    logger,
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
}

// Print sends t to the printer of (locationID, st) and returns the job id.
func (d *Dispatcher) Print(ctx context.Context, locationID string, st station.Station, t ticket.Ticket) (string, error) {
	printerID, ok := d.directory.Lookup(locationID, st)
	if !ok {
		return "", fmt.Errorf("%w for %s/%s", ErrNoPrinter, locationID, st.Code())
	}

	job, err := d.BuildJob(printerID, locationID, st, t)
	if err != nil {
		return "", err
	}

	resp, err := d.client.Create(ctx, JobsResource, job)
	if err != nil {
		return "", fmt.Errorf("cannot create print job: %w", err)
	}

	if id := createdID(resp); id != "" {
		job.ID = id
	}

	d.logger.Info("print job created", "job_id", job.ID, "printer_id", printerID, "ticket_id", job.TicketID, "station", job.Station)
	return job.ID, nil
}

// BuildJob renders t for printerID without sending it.
func (d *Dispatcher) BuildJob(printerID, locationID string, st station.Station, t ticket.Ticket) (Job, error) {
	raw, err := ticket.RenderESCPOS(t)
	if err != nil {
		return Job{}, fmt.Errorf("cannot render ticket: %w", err)
	}
	return Job{
		ID:         d.newID(),
		PrinterID:  printerID,
		LocationID: locationID,
		Station:    st.Code(),
		TicketID:   t.Header.TicketID,
		Encoding:   PayloadEncoding,
		Payload:    ticket.Encode(raw),
		Preview:    ticket.RenderText(t),
		Rush:       t.HasRush(),
		CreatedAt:  d.now(),
	}, nil
}

func createdID(resp *apt.SuccessResponse) string {
	if resp == nil {
		return ""
	}
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		return ""
	}
	id, _ := data["id"].(string)
	return id
}
