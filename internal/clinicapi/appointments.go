package clinicapi

import (
	"context"
	"fmt"
	"net/http"

	"clinicdesk/internal/model"
)

// ListAppointments returns the appointments visible to role. Customers and
// doctors get their own; staff and admins get the whole collection.
func (c *Client) ListAppointments(ctx context.Context, role model.Role) ([]model.Appointment, error) {
	path := "/appointments"
	switch role {
	case model.RoleCustomer, model.RoleDoctor:
		path += "/" + string(role)
	}
	var out []model.Appointment
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetAppointment(ctx context.Context, id int64) (*model.Appointment, error) {
	var out model.Appointment
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/appointments/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) StartAppointment(ctx context.Context, id int64) error {
	return c.transition(ctx, id, "start")
}

func (c *Client) ConfirmAppointment(ctx context.Context, id int64) error {
	return c.transition(ctx, id, "confirm")
}

func (c *Client) CancelAppointment(ctx context.Context, id int64) error {
	return c.transition(ctx, id, "cancel")
}

func (c *Client) FinishAppointment(ctx context.Context, id int64) error {
	return c.transition(ctx, id, "finish")
}

func (c *Client) transition(ctx context.Context, id int64, verb string) error {
	return c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/appointments/%d/%s", id, verb), nil, nil)
}
