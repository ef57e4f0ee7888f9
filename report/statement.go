/*
Package report renders per-employee leave statements.

PURPOSE:
  A leave statement shows the current derived balances and the request
  history for one employee, rendered as a PDF for payroll and audit use.
  Hours that cannot be recomputed (removed holiday config, etc.) fall back
  to the days captured at submission, same as the balance aggregator.
*/
package report

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/atlashr/leave-engine/leave"
)

// Statement is the assembled data behind one report.
type Statement struct {
	Employee    *leave.Employee
	Balances    *leave.EmployeeBalances
	Requests    []leave.LeaveRequest
	GeneratedAt time.Time
}

// Generator assembles and renders statements.
type Generator struct {
	employees  leave.EmployeeStore
	requests   leave.RequestStore
	aggregator *leave.Aggregator
}

// NewGenerator wires a statement generator.
func NewGenerator(store leave.Store, aggregator *leave.Aggregator) *Generator {
	return &Generator{employees: store, requests: store, aggregator: aggregator}
}

// Build assembles the statement data for one employee.
func (g *Generator) Build(ctx context.Context, employeeID string) (*Statement, error) {
	emp, err := g.employees.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("loading employee %s: %w", employeeID, err)
	}
	if emp == nil {
		return nil, fmt.Errorf("employee %s: %w", employeeID, leave.ErrEmployeeNotFound)
	}
	balances, err := g.aggregator.ForEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	requests, err := g.requests.RequestsForEmployee(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("loading requests: %w", err)
	}
	return &Statement{
		Employee:    emp,
		Balances:    balances,
		Requests:    requests,
		GeneratedAt: time.Now(),
	}, nil
}

// RenderPDF writes the statement as an A4 PDF.
func (g *Generator) RenderPDF(st *Statement, w io.Writer) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Leave Statement")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Employee: %s %s", st.Employee.FirstName, st.Employee.LastName))
	pdf.Ln(7)
	pdf.Cell(0, 7, fmt.Sprintf("Email: %s", st.Employee.Email))
	pdf.Ln(7)
	pdf.Cell(0, 7, fmt.Sprintf("Service start: %s", st.Employee.ServiceStart))
	pdf.Ln(7)
	pdf.Cell(0, 7, fmt.Sprintf("As of: %s", st.Balances.AsOf))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Balances (hours)")
	pdf.Ln(9)

	pdf.SetFont("Helvetica", "B", 10)
	balanceHeader(pdf)
	pdf.SetFont("Helvetica", "", 10)
	for _, cb := range sortedBalances(st.Balances) {
		pdf.CellFormat(32, 7, string(cb.LeaveType), "1", 0, "L", false, 0, "")
		pdf.CellFormat(26, 7, cb.Accrued.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(26, 7, cb.Opening.Add(cb.Adjusted).StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(26, 7, cb.UsedApproved.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(26, 7, cb.UsedPending.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(26, 7, cb.Available.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.Ln(7)
	}
	for t := range st.Balances.Unresolved {
		pdf.CellFormat(32, 7, string(t), "1", 0, "L", false, 0, "")
		pdf.CellFormat(130, 7, "no policy resolved", "1", 0, "L", false, 0, "")
		pdf.Ln(7)
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Request History")
	pdf.Ln(9)

	pdf.SetFont("Helvetica", "B", 10)
	requestHeader(pdf)
	pdf.SetFont("Helvetica", "", 10)
	for i := range st.Requests {
		r := &st.Requests[i]
		pdf.CellFormat(30, 7, string(r.LeaveType), "1", 0, "L", false, 0, "")
		pdf.CellFormat(28, 7, r.StartDate.String(), "1", 0, "L", false, 0, "")
		pdf.CellFormat(28, 7, r.EndDate.String(), "1", 0, "L", false, 0, "")
		pdf.CellFormat(22, 7, r.TotalDays.StringFixed(1), "1", 0, "R", false, 0, "")
		pdf.CellFormat(26, 7, string(r.Status), "1", 0, "L", false, 0, "")
		pdf.CellFormat(28, 7, partialLabel(r.PartialDayType), "1", 0, "L", false, 0, "")
		pdf.Ln(7)
	}

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.Cell(0, 5, fmt.Sprintf("Generated %s", st.GeneratedAt.Format(time.RFC3339)))

	return pdf.Output(w)
}

func balanceHeader(pdf *gofpdf.Fpdf) {
	pdf.CellFormat(32, 7, "Category", "1", 0, "L", false, 0, "")
	pdf.CellFormat(26, 7, "Accrued", "1", 0, "R", false, 0, "")
	pdf.CellFormat(26, 7, "Adjusted", "1", 0, "R", false, 0, "")
	pdf.CellFormat(26, 7, "Approved", "1", 0, "R", false, 0, "")
	pdf.CellFormat(26, 7, "Pending", "1", 0, "R", false, 0, "")
	pdf.CellFormat(26, 7, "Available", "1", 0, "R", false, 0, "")
	pdf.Ln(7)
}

func requestHeader(pdf *gofpdf.Fpdf) {
	pdf.CellFormat(30, 7, "Category", "1", 0, "L", false, 0, "")
	pdf.CellFormat(28, 7, "Start", "1", 0, "L", false, 0, "")
	pdf.CellFormat(28, 7, "End", "1", 0, "L", false, 0, "")
	pdf.CellFormat(22, 7, "Days", "1", 0, "R", false, 0, "")
	pdf.CellFormat(26, 7, "Status", "1", 0, "L", false, 0, "")
	pdf.CellFormat(28, 7, "Partial", "1", 0, "L", false, 0, "")
	pdf.Ln(7)
}

func partialLabel(p leave.PartialDayType) string {
	if !p.IsHalf() {
		return "full day"
	}
	return string(p)
}

func sortedBalances(b *leave.EmployeeBalances) []*leave.CategoryBalance {
	out := make([]*leave.CategoryBalance, 0, len(b.Categories))
	for _, cb := range b.Categories {
		out = append(out, cb)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LeaveType < out[j].LeaveType })
	return out
}
