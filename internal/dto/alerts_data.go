// AlertsData is a paginated response payload for the alert list.
package dto

type AlertsData struct {
	Alerts      []AlertInfo `json:"alerts"`
	Length      int         `json:"length"`
	TotalPages  int         `json:"totalPages"`
	CurrentPage int         `json:"currentPage"`
	Limit       int         `json:"pageSize"`
}
