package clinicapi

import (
	"context"
	"fmt"
	"net/http"

	"clinicdesk/internal/model"
)

func (c *Client) ListCycles(ctx context.Context) ([]model.MenstrualCycle, error) {
	var out []model.MenstrualCycle
	if err := c.doJSON(ctx, http.MethodGet, "/cycles", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateCycle(ctx context.Context, cycle *model.MenstrualCycle) (*model.MenstrualCycle, error) {
	var out model.MenstrualCycle
	if err := c.doJSON(ctx, http.MethodPost, "/cycles", cycle, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateCycle(ctx context.Context, cycle *model.MenstrualCycle) (*model.MenstrualCycle, error) {
	var out model.MenstrualCycle
	if err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/cycles/%d", cycle.ID), cycle, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteCycle(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/cycles/%d", id), nil, nil)
}
