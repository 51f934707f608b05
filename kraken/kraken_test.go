package kraken

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/satsledger/satsledger"
)

const sampleExport = `txid,refid,time,type,subtype,aclass,asset,amount,fee,balance
L1,R1,2023-03-01 10:00:00,deposit,,currency,ZEUR,1000.0000,0,1000.0000
L2,R2,2023-03-02 11:00:00,trade,,currency,ZEUR,-500.0000,1.2500,498.7500
L3,R2,2023-03-02 11:00:00,trade,,currency,XXBT,0.02500000,0,0.02500000
L4,R3,2023-03-03 09:30:00,withdrawal,,currency,XXBT,-0.01000000,0.00002000,0.01498000
L5,R4,2023-03-04 08:00:00,staking,,currency,XXDG,5.00000000,0,5.00000000
`

func writeExport(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledgers.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRead(t *testing.T) {
	entries, err := Reader{}.Read(context.Background(), writeExport(t, sampleExport))
	require.NoError(t, err)
	// 5 rows, 2 of them with fees split into an extra entry.
	require.Len(t, entries, 7)

	deposit := entries[0]
	require.Equal(t, "Kraken", deposit.Wallet)
	require.Equal(t, "L1", deposit.ID)
	require.Equal(t, satsledger.TypeDeposit, deposit.Type)
	require.Equal(t, satsledger.Asset{Name: "EUR", Class: satsledger.Fiat}, deposit.Asset)

	spend, spendFee, receive := entries[1], entries[2], entries[3]
	require.Equal(t, satsledger.TypeTrade, spend.Type)
	require.Equal(t, "R2", spend.GroupID)
	require.Equal(t, "R2", receive.GroupID)
	require.Equal(t, satsledger.Asset{Name: "BTC", Class: satsledger.Crypto}, receive.Asset)

	require.Equal(t, "L2-fee", spendFee.ID)
	require.Equal(t, satsledger.TypeFee, spendFee.Type)
	require.True(t, spendFee.Amount.Equal(decimal.RequireFromString("-1.25")), "fee = %s", spendFee.Amount)

	staking := entries[6]
	require.Equal(t, satsledger.TypeInterest, staking.Type)
	require.Equal(t, satsledger.Asset{Name: "DOGE", Class: satsledger.Crypto}, staking.Asset)
	require.Equal(t, "2023-03-04T08:00:00Z", staking.Date.Format("2006-01-02T15:04:05Z"))
}

func TestRead_SkipsPendingRows(t *testing.T) {
	export := `txid,refid,time,type,subtype,aclass,asset,amount,fee,balance
,R9,2023-03-01 10:00:00,deposit,,currency,XXBT,0.5,0,0.5
L1,R9,2023-03-01 10:05:00,deposit,,currency,XXBT,0.5,0,0.5
`
	entries, err := Reader{}.Read(context.Background(), writeExport(t, export))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "L1", entries[0].ID)
}

func TestRead_BadAmount(t *testing.T) {
	export := `txid,refid,time,type,subtype,aclass,asset,amount,fee,balance
L1,R1,2023-03-01 10:00:00,deposit,,currency,XXBT,not-a-number,0,0
`
	_, err := Reader{}.Read(context.Background(), writeExport(t, export))
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 2")
}

func TestRead_MissingColumn(t *testing.T) {
	_, err := Reader{}.Read(context.Background(), writeExport(t, "txid,time\nL1,2023-03-01 10:00:00\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "refid")
}

func TestRead_UnknownType(t *testing.T) {
	export := `txid,refid,time,type,subtype,aclass,asset,amount,fee,balance
L1,R1,2023-03-01 10:00:00,margin,,currency,XXBT,0.5,0,0.5
`
	_, err := Reader{}.Read(context.Background(), writeExport(t, export))
	require.Error(t, err)
	require.Contains(t, err.Error(), "margin")
}

func TestNormalizeTicker(t *testing.T) {
	tests := []struct {
		ticker string
		name   string
		class  satsledger.AssetClass
	}{
		{"XXBT", "BTC", satsledger.Crypto},
		{"XXDG", "DOGE", satsledger.Crypto},
		{"XETH", "ETH", satsledger.Crypto},
		{"ZEUR", "EUR", satsledger.Fiat},
		{"ZUSD", "USD", satsledger.Fiat},
		{"SOL", "SOL", satsledger.Crypto},
	}
	for _, tt := range tests {
		got := NormalizeTicker(tt.ticker)
		require.Equal(t, satsledger.Asset{Name: tt.name, Class: tt.class}, got, tt.ticker)
	}
}

func TestParse_FractionalSeconds(t *testing.T) {
	export := `txid,refid,time,type,subtype,aclass,asset,amount,fee,balance
L1,R1,2023-03-01 10:00:00.1234,deposit,,currency,XXBT,0.5,0,0.5
`
	entries, err := parse(strings.NewReader(export))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
