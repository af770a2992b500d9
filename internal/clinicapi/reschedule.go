package clinicapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"clinicdesk/internal/model"
)

// CreateReschedule submits a new reschedule request. The result is nil when
// the backend answers without a body.
func (c *Client) CreateReschedule(ctx context.Context, req model.RescheduleRequest) (*model.RescheduleRequest, error) {
	var out *model.RescheduleRequest
	if err := c.doJSON(ctx, http.MethodPost, "/reschedule", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListReschedule returns reschedule requests, narrowed to one appointment
// when appointmentID is non-zero.
func (c *Client) ListReschedule(ctx context.Context, appointmentID int64) ([]model.RescheduleRequest, error) {
	path := "/reschedule"
	if appointmentID != 0 {
		path += "?" + url.Values{"appointmentId": {strconv.FormatInt(appointmentID, 10)}}.Encode()
	}
	var out []model.RescheduleRequest
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ApproveReschedule(ctx context.Context, requestID, optionID int64) (*model.RescheduleRequest, error) {
	body := struct {
		OptionID int64 `json:"optionId"`
	}{OptionID: optionID}
	return c.resolveReschedule(ctx, requestID, "approve", body)
}

func (c *Client) RejectReschedule(ctx context.Context, requestID int64) (*model.RescheduleRequest, error) {
	return c.resolveReschedule(ctx, requestID, "reject", nil)
}

func (c *Client) CancelReschedule(ctx context.Context, requestID int64) (*model.RescheduleRequest, error) {
	return c.resolveReschedule(ctx, requestID, "cancel", nil)
}

// resolveReschedule returns nil when the backend answers without a body.
func (c *Client) resolveReschedule(ctx context.Context, requestID int64, verb string, body any) (*model.RescheduleRequest, error) {
	var out *model.RescheduleRequest
	if err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/reschedule/%d/%s", requestID, verb), body, &out); err != nil {
		return nil, err
	}
	return out, nil
}
