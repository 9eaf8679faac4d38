package dto

import "crosspost/domain/model"

// Res is the generic error body used by middleware.
type Res struct {
	ResponseCode    string `json:"responseCode"`
	ResponseMessage string `json:"responseMessage"`
}

// PublishVideoRequest is the body of POST /api/tiktok/publish.
type PublishVideoRequest struct {
	AccountID string                `json:"account_id" binding:"required"`
	Video     model.VideoPayload    `json:"video" binding:"required"`
	Settings  model.PublishSettings `json:"settings"`
}
