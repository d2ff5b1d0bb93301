package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "transaction id", NormalizeHeader("  Transaction   ID "))
	assert.Equal(t, "atm.id", NormalizeHeader("ATM.ID"))
	assert.Equal(t, "", NormalizeHeader("   "))
}

func TestNewRawRowShortRecord(t *testing.T) {
	headers := []string{"Transaction ID", "Cash Amount", "Fee"}
	row := NewRawRow(headers, []string{"tx-1", "100"})

	v, ok := row.Get("transaction id")
	require.True(t, ok)
	assert.Equal(t, "tx-1", v)

	// The third column was absent from the record, so it must not be present.
	_, ok = row.Get("fee")
	assert.False(t, ok)
}

func TestGetTriesAliasesInOrder(t *testing.T) {
	row := NewRawRow([]string{"Machine_ID", "Terminal SN"}, []string{"m-7", "sn-9"})

	v, ok := row.Get("machine id", "machine_id", "terminal sn")
	require.True(t, ok)
	assert.Equal(t, "m-7", v, "first present alias wins")

	// Presence is about the column, not the value.
	row2 := NewRawRow([]string{"Fee"}, []string{"  "})
	v, ok = row2.Get("fee")
	assert.True(t, ok)
	assert.Equal(t, "", v)
}

func TestParseMoney(t *testing.T) {
	v := ParseMoney("$1,234.56")
	require.NotNil(t, v)
	assert.InDelta(t, 1234.56, *v, 1e-9)

	zero := ParseMoney("0")
	require.NotNil(t, zero, "an explicit zero is a value, not an unknown")
	assert.Equal(t, 0.0, *zero)

	assert.Nil(t, ParseMoney(""))
	assert.Nil(t, ParseMoney("   "))
	assert.Nil(t, ParseMoney("n/a"))

	neg := ParseMoney("-42.10")
	require.NotNil(t, neg)
	assert.InDelta(t, -42.10, *neg, 1e-9)
}

func TestTickerMappingDisplay(t *testing.T) {
	m := TickerMapping{OriginalValue: "BTC_raw"}
	assert.Equal(t, "BTC_raw", m.Display())

	name := "BTC"
	m.DisplayValue = &name
	assert.Equal(t, "BTC", m.Display())

	empty := ""
	m.DisplayValue = &empty
	assert.Equal(t, "BTC_raw", m.Display(), "empty override falls back to the original")
}
