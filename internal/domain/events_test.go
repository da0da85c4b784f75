package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent_ValidKinds(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"type":"newWord","word":"fire","count":1,"category":"positive"}`))
	require.NoError(t, err)
	assert.Equal(t, EventNewWord, ev.Type)
	assert.Equal(t, "fire", ev.Word)
	assert.Equal(t, CategoryPositive, ev.Category)

	ev, err = DecodeEvent([]byte(`{"type":"wordUpdate","word":"fire","newCount":3}`))
	require.NoError(t, err)
	assert.Equal(t, 3, ev.NewCount)

	ev, err = DecodeEvent([]byte(`{"type":"stopped","totalInputs":10,"uniqueWords":4}`))
	require.NoError(t, err)
	assert.Equal(t, 10, ev.TotalInputs)
}

func TestDecodeEvent_RejectsUnknownKind(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"type":"mystery"}`))
	assert.Error(t, err)

	_, err = DecodeEvent([]byte(`not json`))
	assert.Error(t, err)
}

func TestEvent_OmitsUnusedFields(t *testing.T) {
	data, err := json.Marshal(StartedEvent())
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"started"}`, string(data))
}

func TestRateLimitedError_WaitSecondsRoundsUp(t *testing.T) {
	assert.Equal(t, 1, (&RateLimitedError{Wait: 200 * time.Millisecond}).WaitSeconds())
	assert.Equal(t, 3, (&RateLimitedError{Wait: 2100 * time.Millisecond}).WaitSeconds())
	assert.Equal(t, 5, (&RateLimitedError{Wait: 5 * time.Second}).WaitSeconds())
	assert.Equal(t, 1, (&RateLimitedError{}).WaitSeconds())
}

func TestParseCategory(t *testing.T) {
	assert.Equal(t, CategoryTechnical, ParseCategory("technical"))
	assert.Equal(t, CategoryGeneral, ParseCategory("nonsense"))
	assert.Equal(t, CategoryGeneral, ParseCategory(""))
}
