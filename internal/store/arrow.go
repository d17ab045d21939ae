package store

import (
	"fmt"
	"os"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/cyclewise/cohortgen/internal/cohort"
	"github.com/cyclewise/cohortgen/internal/models"
)

// ArrowSchema is the columnar layout of an exported cohort. One row per
// observation, subject attributes denormalized onto each row.
var ArrowSchema = arrow.NewSchema([]arrow.Field{
	{Name: "response_id", Type: arrow.BinaryTypes.String},
	{Name: "subject_id", Type: arrow.BinaryTypes.String},
	{Name: "seq", Type: arrow.PrimitiveTypes.Int32},
	{Name: "authored", Type: arrow.BinaryTypes.String},
	{Name: "lmp", Type: arrow.BinaryTypes.String},
	{Name: "phase", Type: arrow.BinaryTypes.String},
	{Name: "age", Type: arrow.PrimitiveTypes.Int32},
	{Name: "years_since_diagnosis", Type: arrow.PrimitiveTypes.Int32},
	{Name: "delivery_method", Type: arrow.BinaryTypes.String},
	{Name: "cycle_regularity", Type: arrow.BinaryTypes.String},
	{Name: "intervention", Type: arrow.FixedWidthTypes.Boolean},
	{Name: "basal_insulin", Type: arrow.PrimitiveTypes.Float64},
	{Name: "nighttime_glucose", Type: arrow.PrimitiveTypes.Float64},
	{Name: "sleep_awakenings", Type: arrow.PrimitiveTypes.Int32},
	{Name: "night_sweats", Type: arrow.FixedWidthTypes.Boolean},
	{Name: "dizziness", Type: arrow.FixedWidthTypes.Boolean},
	{Name: "palpitations", Type: arrow.FixedWidthTypes.Boolean},
	{Name: "fatigue", Type: arrow.FixedWidthTypes.Boolean},
	{Name: "narrative", Type: arrow.BinaryTypes.String},
}, nil)

// ExportArrow writes the records as a single-batch Arrow IPC file at path.
func ExportArrow(path string, records []cohort.Record) error {
	pool := memory.NewGoAllocator()
	builder := array.NewRecordBuilder(pool, ArrowSchema)
	defer builder.Release()

	for _, r := range records {
		obs, subject := r.Observation, r.Subject
		builder.Field(0).(*array.StringBuilder).Append(obs.ResponseID())
		builder.Field(1).(*array.StringBuilder).Append(subject.ID)
		builder.Field(2).(*array.Int32Builder).Append(int32(obs.Seq))
		builder.Field(3).(*array.StringBuilder).Append(obs.Authored.Format("2006-01-02"))
		builder.Field(4).(*array.StringBuilder).Append(obs.LMP.Format("2006-01-02"))
		builder.Field(5).(*array.StringBuilder).Append(string(obs.Phase))
		builder.Field(6).(*array.Int32Builder).Append(int32(subject.Age))
		builder.Field(7).(*array.Int32Builder).Append(int32(subject.YearsSinceDiagnosis))
		builder.Field(8).(*array.StringBuilder).Append(subject.DeliveryMethod)
		builder.Field(9).(*array.StringBuilder).Append(subject.CycleRegularity)
		builder.Field(10).(*array.BooleanBuilder).Append(subject.Intervention)
		builder.Field(11).(*array.Float64Builder).Append(obs.BasalInsulin)
		builder.Field(12).(*array.Float64Builder).Append(obs.NighttimeGlucose)
		builder.Field(13).(*array.Int32Builder).Append(int32(obs.SleepAwakenings))
		builder.Field(14).(*array.BooleanBuilder).Append(obs.HasSymptom(models.SymptomNightSweats))
		builder.Field(15).(*array.BooleanBuilder).Append(obs.HasSymptom(models.SymptomDizziness))
		builder.Field(16).(*array.BooleanBuilder).Append(obs.HasSymptom(models.SymptomPalpitations))
		builder.Field(17).(*array.BooleanBuilder).Append(obs.HasSymptom(models.SymptomFatigue))
		builder.Field(18).(*array.StringBuilder).Append(obs.Narrative)
	}

	rec := builder.NewRecord()
	defer rec.Release()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating arrow file: %w", err)
	}
	defer f.Close()

	w, err := ipc.NewFileWriter(f, ipc.WithSchema(ArrowSchema), ipc.WithAllocator(pool))
	if err != nil {
		return fmt.Errorf("creating arrow writer: %w", err)
	}
	if err := w.Write(rec); err != nil {
		w.Close()
		return fmt.Errorf("writing arrow record batch: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing arrow writer: %w", err)
	}
	return nil
}
