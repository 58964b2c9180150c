package election

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexDateTimeShapes(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want FlexDateTime
	}{
		{"bare date", `"2026-09-01"`, FlexDateTime{Date: "2026-09-01"}},
		{"date and time", `"2026-09-01 10:30"`, FlexDateTime{Date: "2026-09-01", Time: "10:30"}},
		{"iso separator", `"2026-09-01T10:30"`, FlexDateTime{Date: "2026-09-01", Time: "10:30"}},
		{"seconds clipped", `"2026-09-01 10:30:45"`, FlexDateTime{Date: "2026-09-01", Time: "10:30"}},
		{"object form", `{"date":"2026-09-01","time":"10:30"}`, FlexDateTime{Date: "2026-09-01", Time: "10:30"}},
		{"object without time", `{"date":"2026-09-01"}`, FlexDateTime{Date: "2026-09-01"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got FlexDateTime
			require.NoError(t, json.Unmarshal([]byte(tc.in), &got))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCollectionsDualDecode(t *testing.T) {
	var payload struct {
		Countries StringList `json:"countries"`
		Fees      FeeMap     `json:"fees"`
		Colors    ColorMap   `json:"colors"`
	}

	inline := `{"countries":["DE","FR"],"fees":{"EU":2.5},"colors":{"primary":"#fff"}}`
	require.NoError(t, json.Unmarshal([]byte(inline), &payload))
	assert.Equal(t, StringList{"DE", "FR"}, payload.Countries)
	assert.Equal(t, FeeMap{"EU": 2.5}, payload.Fees)
	assert.Equal(t, ColorMap{"primary": "#fff"}, payload.Colors)

	// The same fields arriving JSON-encoded as strings decode identically.
	encoded := `{"countries":"[\"DE\",\"FR\"]","fees":"{\"EU\":2.5}","colors":"{\"primary\":\"#fff\"}"}`
	payload.Countries, payload.Fees, payload.Colors = nil, nil, nil
	require.NoError(t, json.Unmarshal([]byte(encoded), &payload))
	assert.Equal(t, StringList{"DE", "FR"}, payload.Countries)
	assert.Equal(t, FeeMap{"EU": 2.5}, payload.Fees)
	assert.Equal(t, ColorMap{"primary": "#fff"}, payload.Colors)

	empty := `{"countries":"","fees":"","colors":""}`
	require.NoError(t, json.Unmarshal([]byte(empty), &payload))
	assert.Nil(t, payload.Countries)

	bad := `{"countries":"[not json"}`
	assert.Error(t, json.Unmarshal([]byte(bad), &payload))
}

func TestQuestionListEncodedAsString(t *testing.T) {
	raw := `{"questions":"[{\"text\":\"Q1\",\"answers\":[{\"text\":\"A\"}]}]"}`
	var payload struct {
		Questions QuestionList `json:"questions"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	require.Len(t, payload.Questions, 1)
	assert.Equal(t, "Q1", payload.Questions[0].Text)
	require.Len(t, payload.Questions[0].Answers, 1)
}

func TestValidate(t *testing.T) {
	in := baseInput()
	require.NoError(t, in.Validate())

	missingEnd := baseInput()
	missingEnd.EndDate = nil
	err := missingEnd.Validate()
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "endDate", vErr.Field)

	badType := baseInput()
	badType.Questions[0].Type = "essay"
	err = badType.Validate()
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Reason, "essay")

	badKind := baseInput()
	badKind.Reward = &RewardInput{Kind: "points"}
	err = badKind.Validate()
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "reward.kind", vErr.Field)
}

func TestBuildElectionDefaults(t *testing.T) {
	w := NewWriter()

	e := w.buildElection("creator-1", baseInput())

	// Tri-state toggles: absent values take feature defaults.
	assert.True(t, e.RequireLogin)
	assert.True(t, e.RequireVerifiedEmail)
	assert.False(t, e.Require2FA)
	assert.True(t, e.IsPublic)
	assert.True(t, e.AllowEdit)
	assert.True(t, e.IsDraft)
	assert.False(t, e.IsPublished)

	assert.Equal(t, "09:00", e.StartTime)
	assert.Equal(t, "18:00", e.EndTime)
	assert.Equal(t, "UTC", e.Timezone)
	assert.Equal(t, "single_choice", e.VotingMethod)

	assert.JSONEq(t, "[]", string(e.Countries))
	assert.JSONEq(t, "{}", string(e.RegionalFees))
}

func TestBuildElectionExplicitFalseHonored(t *testing.T) {
	w := NewWriter()
	f := false

	in := baseInput()
	in.RequireLogin = &f
	in.IsDraft = &f
	in.Timezone = "Europe/Berlin"
	in.StartDate.Time = "08:15"

	e := w.buildElection("creator-1", in)

	assert.False(t, e.RequireLogin)
	assert.True(t, e.RequireVerifiedEmail)
	assert.False(t, e.IsDraft)
	assert.Equal(t, "Europe/Berlin", e.Timezone)
	assert.Equal(t, "08:15", e.StartTime)
}

func TestBuildElectionStripsMarkup(t *testing.T) {
	w := NewWriter()

	in := baseInput()
	in.Title = `Budget <script>alert(1)</script> vote`
	in.Description = "<b>bold</b> text"

	e := w.buildElection("creator-1", in)

	assert.NotContains(t, e.Title, "<script>")
	assert.NotContains(t, e.Description, "<b>")
	assert.Contains(t, e.Description, "bold")
}
