package domain

import "sort"

// Flow описывает именованный трек конвейера.
//
// Набор flows закрыт и перечислен заранее: каждый State принадлежит
// ровно одному Flow. Строки таблицы flow неизменяемы.
type Flow struct {
	// ID совпадает с flow.flow_id.
	ID int `json:"flow_id"`

	// Description используется в отчётах и CLI.
	Description string `json:"flow_description"`
}

// State описывает одну бизнес-точку конвейера (end_state).
type State struct {
	// ID совпадает с state.state_id.
	ID int `json:"state_id"`

	// FlowID ссылается на единственный Flow, которому принадлежит state.
	FlowID int `json:"flow_id"`

	// Description используется в отчётах и CLI.
	Description string `json:"state_description"`
}

// Flows.
var (
	FlowDelegatedClaimValidation = Flow{ID: 1, Description: "Delegated claim validation"}
	FlowDelegatedPayment         = Flow{ID: 2, Description: "Delegated payment"}
	FlowDelegatedClaimant        = Flow{ID: 3, Description: "Delegated claimant"}
	FlowReferenceFile            = Flow{ID: 4, Description: "Reference file"}
	FlowOperations               = Flow{ID: 5, Description: "Operations"}
)

// States flow DelegatedClaimValidation.
var (
	StateClaimImported = State{ID: 100, FlowID: 1, Description: "Claim imported"}

	StateDelegatedClaimExtractedFromFineos = State{ID: 101, FlowID: 1,
		Description: "Claim extracted from FINEOS"}

	StateDelegatedClaimAddToClaimExtractErrorReport = State{ID: 102, FlowID: 1,
		Description: "Add to claim extract error report"}

	StateDelegatedClaimValidated = State{ID: 103, FlowID: 1, Description: "Claim validated"}
)

// States flow DelegatedPayment.
var (
	StatePaymentReadyForMaxWeeklyBenefitAmountValidation = State{ID: 200, FlowID: 2,
		Description: "Payment ready for max weekly benefit amount validation"}

	StatePaymentMaxWeeklyBenefitAmountValidationPassed = State{ID: 201, FlowID: 2,
		Description: "Payment passed max weekly benefit amount validation"}

	StatePaymentFailedMaxWeeklyBenefitAmountValidation = State{ID: 202, FlowID: 2,
		Description: "Payment failed max weekly benefit amount validation"}

	StateDelegatedPaymentStagedForPaymentAuditReportSampling = State{ID: 203, FlowID: 2,
		Description: "Staged for payment audit report sampling"}

	StateDelegatedPaymentPaymentAuditReportSent = State{ID: 204, FlowID: 2,
		Description: "Payment audit report sent"}

	StateDelegatedPaymentAddToPubTransactionEFT = State{ID: 205, FlowID: 2,
		Description: "Add to PUB transaction - EFT"}

	StateDelegatedPaymentPubTransactionEFTSent = State{ID: 206, FlowID: 2,
		Description: "PUB transaction sent - EFT"}

	StateDelegatedPaymentComplete = State{ID: 207, FlowID: 2, Description: "Payment complete"}

	StateDelegatedPaymentErrorReportSent = State{ID: 208, FlowID: 2,
		Description: "Payment error report sent"}

	StateDelegatedPaymentRejectedRestartable = State{ID: 209, FlowID: 2,
		Description: "Payment rejected in audit, restartable"}
)

// States flow DelegatedClaimant.
var (
	StateDelegatedClaimantExtractedFromFineos = State{ID: 300, FlowID: 3,
		Description: "Claimant extracted from FINEOS"}

	StateDelegatedClaimantAddToClaimantExtractErrorReport = State{ID: 301, FlowID: 3,
		Description: "Add to claimant extract error report"}
)

// States flow ReferenceFile.
var (
	StateReferenceFileReceived  = State{ID: 400, FlowID: 4, Description: "Reference file received"}
	StateReferenceFileProcessed = State{ID: 401, FlowID: 4, Description: "Reference file processed"}
	StateReferenceFileErrored   = State{ID: 402, FlowID: 4, Description: "Reference file errored"}
)

// States flow Operations.
var (
	StateOperationsStuckStateCheckCompleted = State{ID: 500, FlowID: 5,
		Description: "Stuck state check completed"}
)

var allFlows = []Flow{
	FlowDelegatedClaimValidation,
	FlowDelegatedPayment,
	FlowDelegatedClaimant,
	FlowReferenceFile,
	FlowOperations,
}

var allStates = []State{
	StateClaimImported,
	StateDelegatedClaimExtractedFromFineos,
	StateDelegatedClaimAddToClaimExtractErrorReport,
	StateDelegatedClaimValidated,

	StatePaymentReadyForMaxWeeklyBenefitAmountValidation,
	StatePaymentMaxWeeklyBenefitAmountValidationPassed,
	StatePaymentFailedMaxWeeklyBenefitAmountValidation,
	StateDelegatedPaymentStagedForPaymentAuditReportSampling,
	StateDelegatedPaymentPaymentAuditReportSent,
	StateDelegatedPaymentAddToPubTransactionEFT,
	StateDelegatedPaymentPubTransactionEFTSent,
	StateDelegatedPaymentComplete,
	StateDelegatedPaymentErrorReportSent,
	StateDelegatedPaymentRejectedRestartable,

	StateDelegatedClaimantExtractedFromFineos,
	StateDelegatedClaimantAddToClaimantExtractErrorReport,

	StateReferenceFileReceived,
	StateReferenceFileProcessed,
	StateReferenceFileErrored,

	StateOperationsStuckStateCheckCompleted,
}

// NonRestartablePaymentStates: платежи в этих состояниях уже ушли (или
// уходят) в банк и учитываются как выплаченные за период.
var NonRestartablePaymentStates = []State{
	StatePaymentMaxWeeklyBenefitAmountValidationPassed,
	StateDelegatedPaymentStagedForPaymentAuditReportSampling,
	StateDelegatedPaymentPaymentAuditReportSent,
	StateDelegatedPaymentAddToPubTransactionEFT,
	StateDelegatedPaymentPubTransactionEFTSent,
	StateDelegatedPaymentComplete,
}

var (
	flowsByID  = make(map[int]Flow, len(allFlows))
	statesByID = make(map[int]State, len(allStates))
)

func init() {
	for _, f := range allFlows {
		flowsByID[f.ID] = f
	}
	for _, s := range allStates {
		statesByID[s.ID] = s
	}
}

// AllFlows возвращает копию каталога flows, отсортированную по ID.
func AllFlows() []Flow {
	out := make([]Flow, len(allFlows))
	copy(out, allFlows)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AllStates возвращает копию каталога states, отсортированную по ID.
func AllStates() []State {
	out := make([]State, len(allStates))
	copy(out, allStates)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FlowByID ищет flow в каталоге.
func FlowByID(id int) (Flow, bool) {
	f, ok := flowsByID[id]
	return f, ok
}

// StateByID ищет state в каталоге.
func StateByID(id int) (State, bool) {
	s, ok := statesByID[id]
	return s, ok
}

// StatesInFlow возвращает все states указанного flow.
func StatesInFlow(flowID int) []State {
	var out []State
	for _, s := range AllStates() {
		if s.FlowID == flowID {
			out = append(out, s)
		}
	}
	return out
}

// StateIDs возвращает ID переданных states в том же порядке.
func StateIDs(states []State) []int {
	ids := make([]int, len(states))
	for i, s := range states {
		ids[i] = s.ID
	}
	return ids
}
