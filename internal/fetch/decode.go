package fetch

import (
	"reflect"
	"strings"
	"time"

	"taskquest/internal/analysis/insight"
	"taskquest/internal/errors"
	"taskquest/models"
	"taskquest/ports"

	"github.com/go-viper/mapstructure/v2"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// stringToTimeHook parses the timestamp spellings Postgres, SQLite and PostgREST produce
func stringToTimeHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(time.Time{}) {
		return data, nil
	}
	s := strings.TrimSpace(reflect.ValueOf(data).String())
	if s == "" {
		return time.Time{}, nil
	}
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// DecodeRows decodes backend rows into a slice of T using the db struct tags
func DecodeRows[T any](rows []ports.Row) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		var v T
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			TagName:          "db",
			WeaklyTypedInput: true,
			DecodeHook:       stringToTimeHook,
			Result:           &v,
		})
		if err != nil {
			return nil, err
		}
		if err := decoder.Decode(map[string]interface{}(row)); err != nil {
			return nil, errors.Wrap(err, "failed to decode row")
		}
		out = append(out, v)
	}
	return out, nil
}

// Data decodes results into engine input. A source that failed, or whose rows
// do not decode, is left empty and reported in the returned map.
func (r Results) Data() (insight.Data, map[Source]error) {
	var data insight.Data
	failures := make(map[Source]error)

	decodeInto := func(source Source, decode func([]ports.Row) error) {
		res, ok := r[source]
		if !ok {
			return
		}
		if res.Err != nil {
			failures[source] = res.Err
			return
		}
		if err := decode(res.Rows); err != nil {
			failures[source] = err
		}
	}

	decodeInto(SourceTasks, func(rows []ports.Row) (err error) {
		data.Tasks, err = DecodeRows[models.Task](rows)
		return err
	})
	decodeInto(SourceGoals, func(rows []ports.Row) (err error) {
		data.Goals, err = DecodeRows[models.Goal](rows)
		return err
	})
	decodeInto(SourceGoalProgress, func(rows []ports.Row) (err error) {
		data.GoalProgress, err = DecodeRows[models.GoalProgressEntry](rows)
		return err
	})
	decodeInto(SourceContacts, func(rows []ports.Row) (err error) {
		data.Contacts, err = DecodeRows[models.Contact](rows)
		return err
	})
	decodeInto(SourceInteractions, func(rows []ports.Row) (err error) {
		data.Interactions, err = DecodeRows[models.Interaction](rows)
		return err
	})
	decodeInto(SourceWellness, func(rows []ports.Row) (err error) {
		data.Wellness, err = DecodeRows[models.WellnessEntry](rows)
		return err
	})

	return data, failures
}
