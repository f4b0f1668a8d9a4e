package api

import (
	"strconv"

	"github.com/haulerhq/freightdesk/model"
)

const apiVersion = "1.0"

// Google JSON API style response structures
type APIResponse struct {
	APIVersion string        `json:"apiVersion"`
	Data       any           `json:"data,omitempty"`
	Error      *APIErrorInfo `json:"error,omitempty"`
}

type APIErrorInfo struct {
	Code    int              `json:"code"`
	Message string           `json:"message"`
	Errors  []APIErrorDetail `json:"errors,omitempty"`
}

type APIErrorDetail struct {
	Domain  string `json:"domain"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func NewDataResponse(data any) APIResponse {
	return APIResponse{
		APIVersion: apiVersion,
		Data:       data,
	}
}

func NewErrorResponse(code int, message string, details ...APIErrorDetail) APIResponse {
	return APIResponse{
		APIVersion: apiVersion,
		Error: &APIErrorInfo{
			Code:    code,
			Message: message,
			Errors:  details,
		},
	}
}

type userInfoResponse struct {
	UserID      string   `json:"userId"`
	Username    string   `json:"username"`
	FullName    string   `json:"fullName"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	ClientID    string   `json:"clientId,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	Active      bool     `json:"active"`
}

func newUserInfoResponse(user *model.User) userInfoResponse {
	resp := userInfoResponse{
		UserID:   strconv.FormatUint(uint64(user.ID), 10),
		Username: user.Username,
		FullName: user.FullName,
		Email:    user.Email,
		Role:     user.Role,
		Active:   user.Active,
	}
	if user.Role == model.RoleClient {
		if user.ClientID != 0 {
			resp.ClientID = strconv.FormatUint(uint64(user.ClientID), 10)
		}
		resp.Permissions = user.PermissionList()
	}
	return resp
}
