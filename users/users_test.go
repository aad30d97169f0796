package users_test

import (
	"encoding/json"
	"testing"

	"github.com/MensaSverige/swagapp-sub001/users"
	"github.com/stretchr/testify/require"
)

func TestProfile_DisplayName(t *testing.T) {
	require.Equal(t, "Ada Lovelace", users.Profile{FirstName: "Ada", LastName: "Lovelace", Username: "ada"}.DisplayName())
	require.Equal(t, "ada", users.Profile{Username: "ada"}.DisplayName())
	require.Equal(t, "1234", users.Profile{ID: "1234"}.DisplayName())
}

func TestProfile_Decode(t *testing.T) {
	var p users.Profile
	err := json.Unmarshal([]byte(`{"userId":"5512","firstName":"Bo","settings":{"showLocation":true,"locationUpdateSecs":60}}`), &p)
	require.NoError(t, err)
	require.Equal(t, "5512", p.ID)
	require.True(t, p.Settings.ShowLocation)
	require.Equal(t, 60, p.Settings.LocationUpdateSecs)
}
