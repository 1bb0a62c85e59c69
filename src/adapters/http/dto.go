package http

import (
	"time"

	"florencia/src/domain"
	"florencia/src/domain/entities"
	"florencia/src/services/catalog"
	"florencia/src/services/validation"
)

// NoticeResponse é o corpo de toda resposta: o alerta exibido ao usuário e, quando houver, os dados.
type NoticeResponse struct {
	domain.Notice
	Errors  validation.Errors `json:"errors,omitempty"`
	Warning *domain.Notice    `json:"warning,omitempty"`
	Data    interface{}       `json:"data,omitempty"`
}

// RecordDTO achata os campos do registro ao lado da identidade.
type RecordDTO struct {
	Identity  string          `json:"identity"`
	Fields    entities.Fields `json:"fields"`
	Initials  string          `json:"initials,omitempty"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
}

type SessionDTO struct {
	Token    string `json:"token"`
	UID      string `json:"uid"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	LastName string `json:"last_name"`
}

type PhotoDTO struct {
	MediaRef string `json:"mediaRef"`
}

type DashboardDTO struct {
	Total        int                `json:"total"`
	Distribution map[string]float64 `json:"distribution"`
	Recent       []RecordDTO        `json:"recent"`
}

func MapRecordToResponse(record entities.Record) RecordDTO {
	dto := RecordDTO{
		Identity: record.Identity,
		Fields:   record.Fields,
	}
	if record.Collection == entities.CollectionUsers {
		dto.Initials = record.Initials()
	}
	if !record.CreatedAt.IsZero() {
		createdAt := record.CreatedAt
		dto.CreatedAt = &createdAt
	}
	if !record.UpdatedAt.IsZero() {
		updatedAt := record.UpdatedAt
		dto.UpdatedAt = &updatedAt
	}
	return dto
}

func MapRecordsToResponse(records []entities.Record) []RecordDTO {
	dtos := make([]RecordDTO, len(records))
	for i, record := range records {
		dtos[i] = MapRecordToResponse(record)
	}
	return dtos
}

func MapSessionToResponse(session entities.Session) SessionDTO {
	return SessionDTO{
		Token:    session.Token,
		UID:      session.UID,
		Email:    session.Email,
		Name:     session.Name,
		LastName: session.LastName,
	}
}

func MapSummaryToResponse(summary catalog.Summary) DashboardDTO {
	return DashboardDTO{
		Total:        summary.Total,
		Distribution: summary.Distribution,
		Recent:       MapRecordsToResponse(summary.Recent),
	}
}
