package model

import "time"

// Panel is an orderable STI test panel.
type Panel struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
}

// Examination is a panel ordered by a customer.
type Examination struct {
	ID         int64     `json:"id"`
	CustomerID int64     `json:"customerId"`
	PanelID    int64     `json:"panelId"`
	PanelName  string    `json:"panelName,omitempty"`
	Date       Date      `json:"date"`
	Slot       Slot      `json:"slot"`
	Status     string    `json:"status"`
	Result     string    `json:"result,omitempty"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
}

// SlotInfo is an entry of the slot enumeration served by the backend.
type SlotInfo struct {
	Slot      Slot   `json:"slot"`
	TimeRange string `json:"timeRange"`
}
