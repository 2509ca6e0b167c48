package action

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		a    Action
	}{
		{"toggle on", ToggleFavorite("f123", false)},
		{"toggle off", ToggleFavorite("f123", true)},
		{"cinemas", ShowCinemas([]string{"c1", "c2", "c3"})},
		{"cinemas empty", ShowCinemas([]string{})},
		{"cinemas nil", ShowCinemas(nil)},
		{"map", ShowCinemasMap(55.751244, 37.618423)},
		{"map negative", ShowCinemasMap(-33.8688, 151.2093)},
		{"map origin", ShowCinemasMap(0, 0)},
		{"films", ShowFilms([]string{"f1", "f2"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.a)
			require.NoError(t, err)
			got, err := Decode(data)
			require.NoError(t, err)
			require.Equal(t, tt.a, got)
		})
	}
}

func TestEncode_WireFormat(t *testing.T) {
	data, err := Encode(ToggleFavorite("X", true))
	require.NoError(t, err)
	require.Equal(t, `{"type":"tff","filmUuid":"X","isFav":true}`, data)

	data, err = Encode(ShowCinemasMap(1.5, -2))
	require.NoError(t, err)
	require.Equal(t, `{"type":"scm","lat":1.5,"lon":-2}`, data)

	data, err = Encode(ShowFilms([]string{"f1"}))
	require.NoError(t, err)
	require.Equal(t, `{"type":"sf","filmUuid":["f1"]}`, data)
}

func TestEncode_Deterministic(t *testing.T) {
	a := ShowCinemas([]string{"c1", "c2"})
	first, err := Encode(a)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Encode(a)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestEncode_PayloadTooLarge(t *testing.T) {
	ids := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		ids = append(ids, "cinema-"+strings.Repeat("x", 8))
	}
	_, err := Encode(ShowCinemas(ids))
	require.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestEncode_UnknownKind(t *testing.T) {
	_, err := Encode(Action{Kind: "zz"})
	require.Error(t, err)
}

func TestDecode_Malformed(t *testing.T) {
	inputs := []string{
		"",
		"not json",
		"null",
		"42",
		`"tff"`,
		`[{"type":"tff"}]`,
		`{}`,
		`{"filmUuid":"f1","isFav":true}`,
		`{"type":""}`,
		`{"type":"unknown"}`,
		`{"type":7}`,
		`{"type":"tff"}`,
		`{"type":"tff","filmUuid":12}`,
		`{"type":"tff","filmUuid":"f1","isFav":"yes"}`,
		`{"type":"sc","cinemaUuids":"c1"}`,
		`{"type":"scm","lat":"55"}`,
		`{"type":"scm","lat":55}`,
		`{"type":"sf","filmUuid":"f1"}`,
		`{"type":"sf"`,
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := Decode(in)
			require.ErrorIs(t, err, ErrMalformedAction)
		})
	}
}

func TestDecode_LegacyPayload(t *testing.T) {
	got, err := Decode(`{"type":"tff","filmUuid":"X","isFav":true}`)
	require.NoError(t, err)
	require.Equal(t, ToggleFavorite("X", true), got)

	got, err = Decode(`{"type":"sc","cinemaUuids":["c1","c2"]}`)
	require.NoError(t, err)
	require.Equal(t, []string{"c1", "c2"}, got.CinemaUUIDs)
}
