// Package dto defines the request and response shapes of the v1 API.
package dto

// IDResponse returns the id of a newly created resource.
type IDResponse struct {
	ID string `json:"id"`
}

// MessageResponse is a plain acknowledgment.
type MessageResponse struct {
	Message string `json:"message"`
}
