// Package closing runs the daily close-out saga and stores its closing records.
package closing

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// State is the position of a closing run in its lifecycle.
type State string

const (
	StateNotStarted         State = "NotStarted"
	StateInvoicing          State = "Invoicing"
	StatePurchaseInvoicing  State = "PurchaseInvoicing"
	StateRouteCreated       State = "RouteCreated"
	StatePurchaseForecasted State = "PurchaseForecasted"
	StateInventoryProjected State = "InventoryProjected"
	StateClosed             State = "Closed"
	StateFailed             State = "Failed"
)

// Step names one saga step.
type Step string

const (
	StepInvoiceOrders    Step = "invoice_orders"
	StepInvoicePurchase  Step = "invoice_purchase"
	StepCreateRoute      Step = "create_route"
	StepForecastPurchase Step = "forecast_purchase"
	StepProjectInventory Step = "project_inventory"
	StepPersistRecord    Step = "persist_record"
)

type transition struct {
	step Step
	from State
	to   State
}

// transitions is the only order in which a run may advance.
var transitions = []transition{
	{StepInvoiceOrders, StateNotStarted, StateInvoicing},
	{StepInvoicePurchase, StateInvoicing, StatePurchaseInvoicing},
	{StepCreateRoute, StatePurchaseInvoicing, StateRouteCreated},
	{StepForecastPurchase, StateRouteCreated, StatePurchaseForecasted},
	{StepProjectInventory, StatePurchaseForecasted, StateInventoryProjected},
	{StepPersistRecord, StateInventoryProjected, StateClosed},
}

// ErrInvalidTransition reports a step applied out of order.
var ErrInvalidTransition = errors.New("closing: invalid state transition")

// Advance returns the state reached by completing step from state.
func Advance(state State, step Step) (State, error) {
	for _, t := range transitions {
		if t.step == step {
			if t.from != state {
				return StateFailed, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, step, state)
			}
			return t.to, nil
		}
	}
	return StateFailed, fmt.Errorf("%w: unknown step %s", ErrInvalidTransition, step)
}

// Steps lists the saga steps in execution order.
func Steps() []Step {
	out := make([]Step, len(transitions))
	for i, t := range transitions {
		out[i] = t.step
	}
	return out
}

// Outcome is how a step finished.
type Outcome string

const (
	OutcomeDone        Outcome = "done"
	OutcomeSkipped     Outcome = "skipped"
	OutcomeNothingToDo Outcome = "nothing_to_do"
	OutcomePartial     Outcome = "partial"
	OutcomeFailed      Outcome = "failed"
)

// StepResult reports one executed step.
type StepResult struct {
	Step    Step     `json:"step"`
	Outcome Outcome  `json:"outcome"`
	Detail  string   `json:"detail,omitempty"`
	Failed  []string `json:"failed,omitempty"`
}

// Failure names the step that stopped a run.
type Failure struct {
	Step  Step   `json:"step"`
	Cause string `json:"cause"`
}

// Result is the report of one saga run.
type Result struct {
	RunID     string       `json:"run_id"`
	Date      time.Time    `json:"date"`
	State     State        `json:"state"`
	Steps     []StepResult `json:"steps"`
	Committed []Step       `json:"committed"`
	Failed    *Failure     `json:"failed_step,omitempty"`
	Record    *Record      `json:"record,omitempty"`
}

// Closed reports whether the run reached the terminal state.
func (r Result) Closed() bool {
	return r.State == StateClosed
}

// StepError wraps the cause of a failed step.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("closing: step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Record is the immutable summary of one closed date.
type Record struct {
	CloseDate      time.Time       `json:"close_date"`
	GMV            decimal.Decimal `json:"gmv"`
	COGS           decimal.Decimal `json:"cogs"`
	PurchaseValue  decimal.Decimal `json:"purchase"`
	InventoryValue decimal.Decimal `json:"inventory"`
	InventoryPrev  decimal.Decimal `json:"inventory_prev"`
	Leakage        decimal.Decimal `json:"leakage"`
	Orders         int             `json:"orders"`
	Lines          int             `json:"lines"`
	AOV            decimal.Decimal `json:"aov"`
	ALV            decimal.Decimal `json:"alv"`
	CashMargin     decimal.Decimal `json:"cash_margin"`
	MarginPct      decimal.Decimal `json:"margin"`
	Cash           decimal.Decimal `json:"cash"`
	Davivienda     decimal.Decimal `json:"davivienda"`
	Bancolombia    decimal.Decimal `json:"bancolombia"`
	CarteraToday   decimal.Decimal `json:"cartera_today"`
	CarteraTotal   decimal.Decimal `json:"cartera_total"`
	LogisticsCost  decimal.Decimal `json:"cost_log"`
	RunID          string          `json:"run_id"`
	CreatedAt      time.Time       `json:"created_at"`
}
