package fhir

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cyclewise/cohortgen/internal/models"
)

func sampleRecord() (*models.Subject, *models.Observation) {
	subject := &models.Subject{
		ID:                  "patient-0003",
		Age:                 29,
		YearsSinceDiagnosis: 11,
		DeliveryMethod:      models.DeliveryPump,
		CycleRegularity:     models.RegularitySomewhatRegular,
		Intervention:        false,
	}
	obs := &models.Observation{
		SubjectID:        "patient-0003",
		Seq:              12,
		Authored:         time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC),
		LMP:              time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC),
		Phase:            models.Luteal,
		BasalInsulin:     15.2,
		NighttimeGlucose: 124.8,
		SleepAwakenings:  2,
		Symptoms:         []string{models.SymptomNightSweats, models.SymptomFatigue},
		Narrative:        "My glucose levels tend to be higher during certain times of the month.",
	}
	return subject, obs
}

func TestBuildResponseShape(t *testing.T) {
	subject, obs := sampleRecord()
	r := BuildResponse(subject, obs)

	if r.ResourceType != "QuestionnaireResponse" {
		t.Errorf("resourceType = %q", r.ResourceType)
	}
	if r.ID != "response-patient-0003-obs-0012" {
		t.Errorf("id = %q", r.ID)
	}
	if r.Status != "completed" {
		t.Errorf("status = %q", r.Status)
	}
	if r.Questionnaire != "Questionnaire/menstrual-cycle-t1d-questionnaire" {
		t.Errorf("questionnaire = %q", r.Questionnaire)
	}
	if len(r.Item) != 10 {
		t.Fatalf("expected 10 items, got %d", len(r.Item))
	}
	for i, item := range r.Item {
		want := string(rune('1' + i))
		if i == 9 {
			want = "10"
		}
		if item.LinkID != want {
			t.Errorf("item %d linkId = %q, want %q", i, item.LinkID, want)
		}
	}
}

func TestBuildResponseAnswers(t *testing.T) {
	subject, obs := sampleRecord()
	r := BuildResponse(subject, obs)

	if a := r.AnswerFor("1"); a == nil || a.ValueInteger == nil || *a.ValueInteger != 29 {
		t.Error("linkId 1 should carry age 29 as valueInteger")
	}
	if a := r.AnswerFor("3"); a == nil || a.ValueString == nil || *a.ValueString != models.DeliveryPump {
		t.Error("linkId 3 should carry the delivery method as valueString")
	}
	if a := r.AnswerFor("4"); a == nil || a.ValueDate == nil || *a.ValueDate != "2026-05-03" {
		t.Error("linkId 4 should carry the LMP as valueDate")
	}
	if a := r.AnswerFor("6"); a == nil || a.ValueDecimal == nil || *a.ValueDecimal != 15.2 {
		t.Error("linkId 6 should carry the basal dose as valueDecimal")
	}
	if a := r.AnswerFor("7"); a == nil || a.ValueDecimal == nil || *a.ValueDecimal != 124.8 {
		t.Error("linkId 7 should carry glucose as valueDecimal")
	}

	// linkId 9 repeats: one answer per symptom.
	var symptomItem *Item
	for i := range r.Item {
		if r.Item[i].LinkID == "9" {
			symptomItem = &r.Item[i]
		}
	}
	if symptomItem == nil || len(symptomItem.Answer) != 2 {
		t.Fatal("linkId 9 should carry one answer per symptom")
	}
}

func TestBuildResponseNoSymptoms(t *testing.T) {
	subject, obs := sampleRecord()
	obs.Symptoms = nil
	r := BuildResponse(subject, obs)

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	// An empty answer list must be omitted, not rendered as null or [].
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	items := decoded["item"].([]any)
	symptomItem := items[8].(map[string]any)
	if _, present := symptomItem["answer"]; present {
		t.Error("empty symptom answer list should be omitted")
	}
}

func TestWriteFile(t *testing.T) {
	subject, obs := sampleRecord()
	r := BuildResponse(subject, obs)

	path := filepath.Join(t.TempDir(), "response.json")
	if err := r.WriteFile(path); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading written file: %v", err)
	}

	var back Response
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("written file is not valid JSON: %v", err)
	}
	if back.ID != r.ID {
		t.Errorf("round-tripped id = %q, want %q", back.ID, r.ID)
	}
}
