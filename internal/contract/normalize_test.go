package contract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustNormalize(t *testing.T, payload string) Contract {
	t.Helper()
	var raw RawContract
	require.NoError(t, json.Unmarshal([]byte(payload), &raw))
	c, err := raw.Normalize()
	require.NoError(t, err)
	return c
}

func TestRawContractNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		want    Contract
	}{
		{
			name:    "english names",
			payload: `{"id":"c-1","workerId":"w-1","contractType":"fixed_term","startDate":"2024-01-01","endDate":"2024-06-30T00:00:00.000Z","status":"active"}`,
			want:    Contract{ID: "c-1", WorkerID: "w-1", Type: TypeFixedTerm, StartDate: day(2024, 1, 1), EndDate: dayPtr(2024, 6, 30), Status: StatusActive},
		},
		{
			name:    "spanish names and numeric ids",
			payload: `{"id_contrato":17,"trabajador_id":42,"tipo_contrato":"Plazo Fijo","fecha_inicio":"01/02/2024","fecha_fin":"31/07/2024","estado":"Activo"}`,
			want:    Contract{ID: "17", WorkerID: "42", Type: TypeFixedTerm, StartDate: day(2024, 2, 1), EndDate: dayPtr(2024, 7, 31), Status: StatusActive},
		},
		{
			name:    "id_trabajador and indefinite",
			payload: `{"id":"c-2","id_trabajador":"w-2","tipo_contrato":"INDEFINIDO","fecha_inicio":"2020-03-01","fecha_fin":null,"estado":"Finalizado"}`,
			want:    Contract{ID: "c-2", WorkerID: "w-2", Type: TypeIndefinite, StartDate: day(2020, 3, 1), Status: StatusFinished},
		},
		{
			name:    "english name wins over spanish",
			payload: `{"id":"c-3","id_contrato":"ignored","workerId":"w-3","startDate":"2024-01-01","fecha_inicio":"2023-01-01"}`,
			want:    Contract{ID: "c-3", WorkerID: "w-3", Type: TypeIndefinite, StartDate: day(2024, 1, 1), Status: StatusActive},
		},
		{
			name:    "type inferred from end date",
			payload: `{"id":"c-4","workerId":"w-4","startDate":"2024-01-01","endDate":"2024-02-01"}`,
			want:    Contract{ID: "c-4", WorkerID: "w-4", Type: TypeFixedTerm, StartDate: day(2024, 1, 1), EndDate: dayPtr(2024, 2, 1), Status: StatusActive},
		},
		{
			name:    "unparseable end date kept raw",
			payload: `{"id":"c-5","workerId":"w-5","contractType":"plazo_fijo","startDate":"2024-01-01","endDate":"pending","status":1}`,
			want:    Contract{ID: "c-5", WorkerID: "w-5", Type: TypeFixedTerm, StartDate: day(2024, 1, 1), RawEndDate: "pending", Status: StatusActive},
		},
		{
			name:    "unparseable start date kept raw",
			payload: `{"id":"c-6","id_trabajador":"7","tipo_contrato":"Indefinido","fecha_inicio":"2024/01/15","estado":"Activo"}`,
			want:    Contract{ID: "c-6", WorkerID: "7", Type: TypeIndefinite, RawStartDate: "2024/01/15", Status: StatusActive},
		},
		{
			name:    "start date with time of day",
			payload: `{"id":"c-7","workerId":"w-7","startDate":"15/01/2024 09:00","endDate":"15/07/2024 18:00"}`,
			want:    Contract{ID: "c-7", WorkerID: "w-7", Type: TypeFixedTerm, StartDate: day(2024, 1, 15), EndDate: dayPtr(2024, 7, 15), Status: StatusActive},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, mustNormalize(t, tt.payload))
		})
	}
}

func TestRawContractNormalizeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
	}{
		{"missing id", `{"workerId":"w","startDate":"2024-01-01"}`},
		{"missing worker", `{"id":"c","startDate":"2024-01-01"}`},
		{"missing start", `{"id":"c","workerId":"w"}`},
		{"unknown type", `{"id":"c","workerId":"w","startDate":"2024-01-01","contractType":"seasonal"}`},
		{"unknown status", `{"id":"c","workerId":"w","startDate":"2024-01-01","status":"paused"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var raw RawContract
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &raw))
			_, err := raw.Normalize()
			require.Error(t, err)
		})
	}
}

func TestRawWorkerNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		want    Worker
	}{
		{"english", `{"id":"w-1","name":"Ana","lastName":"García"}`, Worker{ID: "w-1", Name: "Ana García"}},
		{"spanish", `{"id_trabajador":7,"nombre":" Luis ","apellido":"Pérez"}`, Worker{ID: "7", Name: "Luis Pérez"}},
		{"decomposed accents become NFC", `{"id":"w-2","nombre":"Jose\u0301","apellidos":"Nun\u0303ez Ruiz"}`, Worker{ID: "w-2", Name: "Jos\u00e9 Nu\u00f1ez Ruiz"}},
		{"no name", `{"id":"w-3"}`, Worker{ID: "w-3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var raw RawWorker
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &raw))
			got, err := raw.Normalize()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	var raw RawWorker
	_, err := raw.Normalize()
	require.Error(t, err)
}

func TestParseEnums(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"Indefinido", "indefinida", "INDEFINITE", "Indéfinido"} {
		typ, ok := ParseType(s)
		assert.True(t, ok, s)
		assert.Equal(t, TypeIndefinite, typ, s)
	}
	for _, s := range []string{"Plazo Fijo", "plazo-fijo", "fixed_term", "Fixed Term", "temporal"} {
		typ, ok := ParseType(s)
		assert.True(t, ok, s)
		assert.Equal(t, TypeFixedTerm, typ, s)
	}
	for _, s := range []string{"Activo", "ACTIVE", "vigente", "true"} {
		st, ok := ParseStatus(s)
		assert.True(t, ok, s)
		assert.Equal(t, StatusActive, st, s)
	}
	for _, s := range []string{"Finalizado", "finished", "Vencido", "0"} {
		st, ok := ParseStatus(s)
		assert.True(t, ok, s)
		assert.Equal(t, StatusFinished, st, s)
	}
	_, ok := ParseType("")
	assert.False(t, ok)
}
