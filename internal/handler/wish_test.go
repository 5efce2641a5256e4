package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/tabortao/HomeRecord/internal/honor"
	"github.com/tabortao/HomeRecord/internal/model"
)

func TestWishExchange(t *testing.T) {
	env := setupHonorHandler(t)
	ctx := context.Background()
	u, err := env.users.Create(ctx, "alice", "secret", "Alice", nil)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := env.users.AddGold(ctx, u.ID, 40); err != nil {
		t.Fatalf("add gold: %v", err)
	}

	rec := env.do(t, "POST", "/api/wishes/exchange", `{"user_id": `+itoa(u.ID)+`, "wish": "看电影", "cost": 10, "quantity": 3}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}
	var resp exchangeResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.RemainingGold != 10 || resp.TotalCost != 30 || resp.Quantity != 3 {
		t.Errorf("response = %+v, want 10 remaining for 30", resp)
	}

	// Quantity defaults to one; the balance cannot cover it.
	rec = env.do(t, "POST", "/api/wishes/exchange", `{"user_id": `+itoa(u.ID)+`, "wish": "看电影", "cost": 11}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
	if got := gold(t, env, u.ID); got != 10 {
		t.Errorf("gold = %d, want 10 after refused exchange", got)
	}

	// One exchange entry per request, regardless of quantity.
	if n := countLogs(t, env, u.ID, model.OperationWishExchange); n != 1 {
		t.Errorf("exchanges = %d, want 1", n)
	}
}

func TestWishExchangeGrantsWishMaster(t *testing.T) {
	env := setupHonorHandler(t)
	ctx := context.Background()
	u, err := env.users.Create(ctx, "alice", "secret", "Alice", nil)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	for i := 0; i < 9; i++ {
		if _, err := env.logs.Create(ctx, u.ID, model.OperationWishExchange, "零食", model.OperationSuccess); err != nil {
			t.Fatalf("create log: %v", err)
		}
	}

	rec := env.do(t, "POST", "/api/wishes/exchange", `{"user_id": `+itoa(u.ID)+`, "wish": "零食", "cost": 0}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}
	var resp exchangeResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Honors) != 1 || resp.Honors[0].Key != honor.KeyWishMaster {
		t.Errorf("honors = %+v, want wish_master", resp.Honors)
	}
}

func TestWishExchangeErrors(t *testing.T) {
	env := setupHonorHandler(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing wish", `{"user_id": 1, "cost": 1}`, http.StatusBadRequest},
		{"negative quantity", `{"user_id": 1, "wish": "x", "cost": 1, "quantity": -1}`, http.StatusBadRequest},
		{"negative cost", `{"user_id": 1, "wish": "x", "cost": -1}`, http.StatusBadRequest},
		{"unknown user", `{"user_id": 999, "wish": "x", "cost": 1}`, http.StatusNotFound},
		{"invalid json", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := env.do(t, "POST", "/api/wishes/exchange", tt.body); rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
