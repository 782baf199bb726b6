package dto

import (
	"testing"
	"time"

	"pix-reconciler/internal/core/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- SanitizeStruct tests ---

func TestSanitizeStruct_TrimsWhitespace(t *testing.T) {
	req := CreateChargeRequest{
		Description: "  PrescrevaMe Premium  ",
		ExternalID:  " order-1 ",
	}
	SanitizeStruct(&req)

	assert.Equal(t, "PrescrevaMe Premium", req.Description)
	assert.Equal(t, "order-1", req.ExternalID)
}

func TestSanitizeStruct_EscapesHTML(t *testing.T) {
	req := CreateChargeRequest{Description: "plano <script>alert('x')</script>"}
	SanitizeStruct(&req)

	assert.Contains(t, req.Description, "&lt;script&gt;")
	assert.NotContains(t, req.Description, "<script>")
}

func TestSanitizeStruct_DescendsIntoStructPointers(t *testing.T) {
	req := CreateChargeRequest{
		Customer: &CustomerRequest{Name: "  Maria <b>Souza</b> ", TaxID: " 529.982.247-25 "},
	}
	SanitizeStruct(&req)

	assert.Equal(t, "Maria &lt;b&gt;Souza&lt;/b&gt;", req.Customer.Name)
	assert.Equal(t, "529.982.247-25", req.Customer.TaxID)
}

func TestSanitizeStruct_NilPointerIsNoOp(t *testing.T) {
	req := CreateChargeRequest{Description: "x"}
	SanitizeStruct(&req)
	assert.Nil(t, req.Customer)
}

func TestSanitizeStruct_NonPointerIsNoOp(t *testing.T) {
	s := "hello"
	SanitizeStruct(s) // should not panic
}

// --- Custom Validator tests ---

func TestSafeID(t *testing.T) {
	for _, tc := range []string{"ref-001", "REF_002", "a.b.c", "prescreva-me-1"} {
		assert.True(t, safeStringRe.MatchString(tc), "expected valid: %s", tc)
	}
	for _, tc := range []string{"ref 001", "ref<001>", "ref;DROP", "", "ref\n001"} {
		assert.False(t, safeStringRe.MatchString(tc), "expected invalid: %s", tc)
	}
}

func TestValidCPF(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"529.982.247-25", true},
		{"52998224725", true},
		{"111.444.777-35", true},
		{"529.982.247-26", false}, // wrong second digit
		{"529.982.247-15", false}, // wrong first digit
		{"111.111.111-11", false}, // repeated digits
		{"5299822472", false},
		{"", false},
		{"abc.def.ghi-jk", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidCPF(tt.in))
		})
	}
}

func TestValidPhone(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"(11) 99999-9999", true},
		{"+55 11 99999-9999", true},
		{"11988887777", true},
		{"1133334444", true},
		{"5511988887777", true},
		{"(01) 99999-9999", false},
		{"99999-9999", false},
		{"11 9999x-9999", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidPhone(tt.in))
		})
	}
}

func TestCreateChargeRequest_Binding(t *testing.T) {
	valid := func() CreateChargeRequest {
		return CreateChargeRequest{
			Customer: &CustomerRequest{
				Name:      "Maria Souza",
				Email:     "maria@example.com",
				Cellphone: "(11) 99999-9999",
				TaxID:     "529.982.247-25",
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*CreateChargeRequest)
		wantErr bool
	}{
		{"defaults only", func(*CreateChargeRequest) {}, false},
		{"no customer", func(r *CreateChargeRequest) { r.Customer = nil }, false},
		{"invalid cpf", func(r *CreateChargeRequest) { r.Customer.TaxID = "123.456.789-00" }, true},
		{"invalid phone", func(r *CreateChargeRequest) { r.Customer.Cellphone = "12345" }, true},
		{"invalid email", func(r *CreateChargeRequest) { r.Customer.Email = "maria" }, true},
		{"negative amount", func(r *CreateChargeRequest) { r.Amount = -1 }, true},
		{"expiry too short", func(r *CreateChargeRequest) { r.ExpiresIn = 30 }, true},
		{"unsafe external id", func(r *CreateChargeRequest) { r.ExternalID = "order 1" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(&req)
			err := binding.Validator.ValidateStruct(&req)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateChargeRequest_ToInput(t *testing.T) {
	req := CreateChargeRequest{
		Amount:      1000,
		Description: "Consulta",
		ExpiresIn:   900,
		ExternalID:  "order-1",
		Customer:    &CustomerRequest{Name: "Maria", Email: "m@example.com", Cellphone: "11988887777", TaxID: "52998224725"},
	}

	in := req.ToInput()
	assert.Equal(t, domain.CreateChargeInput{
		Amount:      1000,
		Description: "Consulta",
		ExpiresIn:   15 * time.Minute,
		ExternalID:  "order-1",
		Customer:    domain.Customer{Name: "Maria", Email: "m@example.com", Phone: "11988887777", TaxID: "52998224725"},
	}, in)

	assert.Equal(t, domain.Customer{}, CreateChargeRequest{}.ToInput().Customer)
}

func TestNewChargeResponse(t *testing.T) {
	exp := time.Date(2025, 9, 26, 10, 15, 0, 0, time.UTC)
	resp := NewChargeResponse(&domain.Charge{
		ID:        "pix_char_1",
		Status:    domain.ChargeStatusPending,
		Amount:    34700,
		BRCode:    "000201...",
		ExpiresAt: &exp,
		DevMode:   true,
	})

	assert.Equal(t, "PENDING", resp.Status)
	assert.Equal(t, "R$ 347.00", resp.AmountFormatted)
	require.NotNil(t, resp.ExpiresAt)
	assert.Equal(t, "2025-09-26T10:15:00Z", *resp.ExpiresAt)

	bare := NewChargeResponse(&domain.Charge{ID: "pix_char_2", Status: domain.ChargeStatusPaid})
	assert.Empty(t, bare.AmountFormatted)
	assert.Nil(t, bare.ExpiresAt)
}
