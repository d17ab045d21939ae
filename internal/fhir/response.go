// Package fhir serializes generated observations as FHIR R4
// QuestionnaireResponse resources. Only the subset of the resource used by
// the menstrual-cycle questionnaire is modeled; this is a writer, not a
// general FHIR implementation.
package fhir

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cyclewise/cohortgen/internal/models"
)

// QuestionnaireID is the canonical questionnaire every response answers.
const QuestionnaireID = "menstrual-cycle-t1d-questionnaire"

// Answer is one QuestionnaireResponse item answer. Exactly one value field is
// set per answer.
type Answer struct {
	ValueInteger *int     `json:"valueInteger,omitempty"`
	ValueDecimal *float64 `json:"valueDecimal,omitempty"`
	ValueString  *string  `json:"valueString,omitempty"`
	ValueDate    *string  `json:"valueDate,omitempty"`
}

// Item is one answered questionnaire item.
type Item struct {
	LinkID string   `json:"linkId"`
	Text   string   `json:"text"`
	Answer []Answer `json:"answer,omitempty"`
}

// Response is a FHIR R4 QuestionnaireResponse document.
type Response struct {
	ResourceType  string `json:"resourceType"`
	ID            string `json:"id"`
	Questionnaire string `json:"questionnaire"`
	Status        string `json:"status"`
	Authored      string `json:"authored"`
	Item          []Item `json:"item"`
}

func intAnswer(v int) []Answer { return []Answer{{ValueInteger: &v}} }

func decimalAnswer(v float64) []Answer { return []Answer{{ValueDecimal: &v}} }

func stringAnswer(v string) []Answer { return []Answer{{ValueString: &v}} }

func dateAnswer(v string) []Answer { return []Answer{{ValueDate: &v}} }

// BuildResponse renders a subject's observation as a completed
// QuestionnaireResponse. The ten items carry fixed linkIds 1 through 10;
// downstream parsers address answers by linkId, so the numbering is part of
// the wire contract.
func BuildResponse(subject *models.Subject, obs *models.Observation) *Response {
	symptomAnswers := make([]Answer, 0, len(obs.Symptoms))
	for _, s := range obs.Symptoms {
		symptom := s
		symptomAnswers = append(symptomAnswers, Answer{ValueString: &symptom})
	}

	return &Response{
		ResourceType:  "QuestionnaireResponse",
		ID:            fmt.Sprintf("response-%s", obs.ResponseID()),
		Questionnaire: fmt.Sprintf("Questionnaire/%s", QuestionnaireID),
		Status:        "completed",
		Authored:      obs.Authored.Format("2006-01-02T15:04:05Z07:00"),
		Item: []Item{
			{
				LinkID: "1",
				Text:   "Age (years)",
				Answer: intAnswer(subject.Age),
			},
			{
				LinkID: "2",
				Text:   "How many years since your Type 1 Diabetes diagnosis?",
				Answer: intAnswer(subject.YearsSinceDiagnosis),
			},
			{
				LinkID: "3",
				Text:   "Which insulin delivery method do you use? (Pump or injections)",
				Answer: stringAnswer(subject.DeliveryMethod),
			},
			{
				LinkID: "4",
				Text:   "First day of your last menstrual period (LMP)",
				Answer: dateAnswer(obs.LMP.Format("2006-01-02")),
			},
			{
				LinkID: "5",
				Text:   "How regular is your menstrual cycle?",
				Answer: stringAnswer(subject.CycleRegularity),
			},
			{
				LinkID: "6",
				Text:   "What is your average nightly basal insulin dose (units)?",
				Answer: decimalAnswer(obs.BasalInsulin),
			},
			{
				LinkID: "7",
				Text:   "What was your average nighttime CGM glucose (00:00–06:00) in mg/dL?",
				Answer: decimalAnswer(obs.NighttimeGlucose),
			},
			{
				LinkID: "8",
				Text:   "How many times do you usually wake up at night (00:00–06:00)?",
				Answer: intAnswer(obs.SleepAwakenings),
			},
			{
				LinkID: "9",
				Text:   "Have you experienced any of these symptoms at night? (select all that apply)",
				Answer: symptomAnswers,
			},
			{
				LinkID: "10",
				Text:   "In your own words, have you noticed changes in glucose stability depending on your menstrual cycle phase?",
				Answer: stringAnswer(obs.Narrative),
			},
		},
	}
}

// AnswerFor returns the first answer of the item with the given linkId, or
// nil if the item is absent or unanswered.
func (r *Response) AnswerFor(linkID string) *Answer {
	for i := range r.Item {
		if r.Item[i].LinkID == linkID && len(r.Item[i].Answer) > 0 {
			return &r.Item[i].Answer[0]
		}
	}
	return nil
}

// MarshalIndent renders the response as indented JSON.
func (r *Response) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// WriteFile writes the response as indented JSON to path.
func (r *Response) WriteFile(path string) error {
	data, err := r.MarshalIndent()
	if err != nil {
		return fmt.Errorf("marshaling response %s: %w", r.ID, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing response %s: %w", r.ID, err)
	}
	return nil
}
