package loan

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/caiwu/internal/amortization"
	"github.com/MrJamesThe3rd/caiwu/internal/http/api"
	"github.com/MrJamesThe3rd/caiwu/internal/loan"
	"github.com/MrJamesThe3rd/caiwu/internal/money"
)

type recordResponse struct {
	ID                   uuid.UUID       `json:"id"`
	RecordType           loan.RecordType `json:"recordType"`
	Name                 string          `json:"name"`
	Counterparty         string          `json:"counterparty"`
	PrincipalAmount      string          `json:"principalAmount"`
	AnnualInterestRate   string          `json:"annualInterestRate"`
	MonthlyPaymentAmount *string         `json:"monthlyPaymentAmount"`
	TotalPaidAmount      string          `json:"totalPaidAmount"`
	OutstandingAmount    string          `json:"outstandingAmount"`
	Status               loan.Status     `json:"status"`
	RiskLevel            loan.RiskLevel  `json:"riskLevel"`
	StartDate            api.Date        `json:"startDate"`
	Notes                string          `json:"notes"`
	IsDeleted            bool            `json:"isDeleted"`
	DeletedAt            *time.Time      `json:"deletedAt,omitempty"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
}

func toRecordResponse(r *loan.Record) recordResponse {
	return recordResponse{
		ID:                   r.ID,
		RecordType:           r.RecordType,
		Name:                 r.Name,
		Counterparty:         r.Counterparty,
		PrincipalAmount:      money.Format(r.PrincipalAmount),
		AnnualInterestRate:   r.AnnualInterestRate.String(),
		MonthlyPaymentAmount: money.FormatPtr(r.MonthlyPaymentAmount),
		TotalPaidAmount:      money.Format(r.TotalPaidAmount),
		OutstandingAmount:    money.Format(r.Outstanding()),
		Status:               r.Status,
		RiskLevel:            loan.RiskLevelFor(r.AnnualInterestRate),
		StartDate:            api.NewDate(r.StartDate),
		Notes:                r.Notes,
		IsDeleted:            r.IsDeleted,
		DeletedAt:            r.DeletedAt,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

type periodResponse struct {
	Number           int    `json:"period"`
	Payment          string `json:"payment"`
	Principal        string `json:"principal"`
	Interest         string `json:"interest"`
	RemainingBalance string `json:"remainingBalance"`
}

func toPeriodResponse(p amortization.Period) periodResponse {
	return periodResponse{
		Number:           p.Number,
		Payment:          money.Format(p.Payment),
		Principal:        money.Format(p.Principal),
		Interest:         money.Format(p.Interest),
		RemainingBalance: money.Format(p.RemainingBalance),
	}
}

type scheduleResponse struct {
	Record        recordResponse   `json:"record"`
	RiskLevel     loan.RiskLevel   `json:"riskLevel"`
	Schedule      []periodResponse `json:"schedule"`
	TotalPeriods  int              `json:"totalPeriods"`
	TotalInterest string           `json:"totalInterest"`
	TotalPaid     string           `json:"totalPaid"`
	Truncated     bool             `json:"truncated"`
}

func toScheduleResponse(p *loan.Projection) scheduleResponse {
	periods := make([]periodResponse, len(p.Periods))
	for i, period := range p.Periods {
		periods[i] = toPeriodResponse(period)
	}

	return scheduleResponse{
		Record:        toRecordResponse(p.Record),
		RiskLevel:     p.RiskLevel,
		Schedule:      periods,
		TotalPeriods:  p.TotalPeriods,
		TotalInterest: money.Format(p.TotalInterest),
		TotalPaid:     money.Format(p.TotalPaid),
		Truncated:     p.Truncated,
	}
}

type summaryResponse struct {
	RecordType  loan.RecordType `json:"recordType"`
	Count       int             `json:"count"`
	ActiveCount int             `json:"activeCount"`
	Principal   string          `json:"principalAmount"`
	Paid        string          `json:"paidAmount"`
	Outstanding string          `json:"outstandingAmount"`
}
