package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "Dados inválidos.", detailsOK: true},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "Não encontrado."},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "Conflito com o estado atual."},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "Operação não permitida neste momento.", detailsOK: true},
		{code: CodeIdempotency, status: http.StatusConflict, publicMsg: "Pedido já está sendo processado.", detailsOK: true},
		{code: CodeOutOfRange, status: http.StatusUnprocessableEntity, publicMsg: "Endereço fora da área de entrega.", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "Erro interno. Tente novamente.", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "Serviço indisponível. Tente novamente.", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestFromUpstream(t *testing.T) {
	tests := []struct {
		status    int
		code      Code
		retryable bool
	}{
		{status: 0, code: CodeDependency, retryable: true},
		{status: http.StatusBadGateway, code: CodeDependency, retryable: true},
		{status: http.StatusOK, code: CodeDependency, retryable: true},
		{status: http.StatusBadRequest, code: CodeValidation},
		{status: http.StatusUnprocessableEntity, code: CodeValidation},
		{status: http.StatusNotFound, code: CodeNotFound},
		{status: http.StatusConflict, code: CodeConflict},
	}
	for _, tt := range tests {
		err := FromUpstream(tt.status, "Loja fechada")
		if err.Code() != tt.code {
			t.Fatalf("status %d: expected %s got %s", tt.status, tt.code, err.Code())
		}
		if Retryable(err) != tt.retryable {
			t.Fatalf("status %d: expected retryable %v", tt.status, tt.retryable)
		}
		if err.Message() != "Loja fechada" {
			t.Fatalf("status %d: message lost", tt.status)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing phone")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing phone" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	base.WithDetails(map[string]any{"field": "phone"})
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeDependency, cause, "distance lookup")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Error() != "DEPENDENCY_ERROR: distance lookup: boom" {
		t.Fatalf("unexpected error string %q", wrapped.Error())
	}
}

func TestAsAndHelpers(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeNotFound, "customer"))
	if got := As(err); got == nil || got.Code() != CodeNotFound {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
	if !IsCode(err, CodeNotFound) || IsCode(err, CodeConflict) {
		t.Fatalf("IsCode mismatch")
	}
	if Retryable(err) {
		t.Fatalf("not found should not be retryable")
	}
	if !Retryable(New(CodeDependency, "backend down")) {
		t.Fatalf("dependency errors should be retryable")
	}
	if !Retryable(stdErrors.New("plain")) {
		t.Fatalf("untyped errors should be retryable")
	}
	if Retryable(nil) {
		t.Fatalf("nil error is not retryable")
	}
}

func TestDumpIncludesPostgresDetails(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "kv_entries_pkey", TableName: "kv_entries", Message: "duplicate key"}
	err := Wrap(CodeConflict, pgErr, "saving entry")

	dump := Dump(err)
	if dump.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", dump.Code)
	}
	if dump.PGCode != "23505" || dump.PGTable != "kv_entries" {
		t.Fatalf("unexpected pg fields %+v", dump)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected two chain entries, got %d", len(dump.Chain))
	}
	if empty := Dump(nil); empty.TopMessage != "" || empty.Chain != nil {
		t.Fatalf("expected empty dump for nil")
	}
	if fields := dump.Fields(); fields["pg_constraint"] != "kv_entries_pkey" || fields["retryable"] != false {
		t.Fatalf("unexpected fields %+v", fields)
	}
}

func TestDumpCarriesUpstreamStatus(t *testing.T) {
	dump := Dump(FromUpstream(502, "Loja fechada"))
	if dump.UpstreamStatus != 502 || !dump.Retryable {
		t.Fatalf("unexpected dump %+v", dump)
	}
	fields := dump.Fields()
	if fields["upstream_status"] != 502 {
		t.Fatalf("expected upstream_status field, got %+v", fields)
	}
	if _, ok := fields["error_chain"]; ok {
		t.Fatalf("single-link chains should not be logged")
	}
}
