package series

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func validTrade(id int64) Trade {
	return Trade{
		ID:          id,
		Timestamp:   time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Hour),
		Outcome:     Win,
		PnL:         decimal.NewFromInt(200),
		Balance:     decimal.NewFromInt(10200),
		PeakBalance: decimal.NewFromInt(10200),
		RiskAmount:  decimal.NewFromInt(100),
		RiskReward:  decimal.NewFromInt(2),
		SetupType:   "Breakout",
		Session:     "London",
		Instrument:  "EUR/USD",
	}
}

func TestNewSortsByID(t *testing.T) {
	trades := []Trade{validTrade(3), validTrade(1), validTrade(2)}

	s, err := New(trades)
	if err != nil {
		t.Fatalf("合法输入不应报错: %v", err)
	}
	if s.Len() != 3 {
		t.Fatalf("期望 3 条交易, 实际 %d", s.Len())
	}
	for i, want := range []int64{1, 2, 3} {
		if got := s.At(i).ID; got != want {
			t.Fatalf("位置 %d 期望 id %d, 实际 %d", i, want, got)
		}
	}
}

func TestNewRejectsEmpty(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("空输入应报错")
	}
}

func TestNewRejectsDuplicateID(t *testing.T) {
	_, err := New([]Trade{validTrade(1), validTrade(1)})
	if err == nil {
		t.Fatal("重复 id 应报错")
	}

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("期望 ValidationError, 实际 %T", err)
	}
	if verr.TradeID != 1 || verr.Field != "id" {
		t.Fatalf("错误内容不正确: %#v", verr)
	}
}

func TestNewValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Trade)
		field  string
	}{
		{"missing timestamp", func(tr *Trade) { tr.Timestamp = time.Time{} }, "timestamp"},
		{"bad outcome", func(tr *Trade) { tr.Outcome = "Draw" }, "outcome"},
		{"missing instrument", func(tr *Trade) { tr.Instrument = "" }, "instrument"},
		{"missing setup", func(tr *Trade) { tr.SetupType = "" }, "setup_type"},
		{"missing session", func(tr *Trade) { tr.Session = "" }, "session"},
		{"zero risk", func(tr *Trade) { tr.RiskAmount = decimal.Zero }, "risk_amount"},
		{"negative risk", func(tr *Trade) { tr.RiskAmount = decimal.NewFromInt(-5) }, "risk_amount"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			trade := validTrade(1)
			tc.mutate(&trade)

			_, err := New([]Trade{trade})
			if err == nil {
				t.Fatal("非法输入应报错")
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("期望 ValidationError, 实际 %T", err)
			}
			if verr.Field != tc.field {
				t.Fatalf("期望字段 %s, 实际 %s", tc.field, verr.Field)
			}
		})
	}
}

func TestTradesReturnsCopy(t *testing.T) {
	s, err := New([]Trade{validTrade(1), validTrade(2)})
	if err != nil {
		t.Fatalf("构造失败: %v", err)
	}

	copied := s.Trades()
	copied[0].ID = 99
	if s.At(0).ID != 1 {
		t.Fatal("Trades 应返回副本, 修改不应影响原序列")
	}
}

func TestWinFlags(t *testing.T) {
	loss := validTrade(2)
	loss.Outcome = Loss
	loss.PnL = decimal.NewFromInt(-100)

	s, err := New([]Trade{validTrade(1), loss})
	if err != nil {
		t.Fatalf("构造失败: %v", err)
	}

	flags := s.WinFlags()
	if flags[0] != 1 || flags[1] != 0 {
		t.Fatalf("期望 [1 0], 实际 %v", flags)
	}

	pnl := s.PnL()
	if pnl[0] != 200 || pnl[1] != -100 {
		t.Fatalf("pnl 转换不正确: %v", pnl)
	}
}
