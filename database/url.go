package database

import (
	"strings"
)

// ConstructDatabaseURL joins a server URL and a database name, keeping any
// query parameters and defaulting sslmode to disable
func ConstructDatabaseURL(baseURL, databaseName string) string {
	if databaseName == "" {
		return baseURL
	}

	server, query, _ := strings.Cut(baseURL, "?")
	databaseURL := strings.TrimRight(server, "/") + "/" + databaseName

	params := []string{}
	if query != "" {
		params = append(params, query)
	}
	if !strings.Contains(query, "sslmode=") {
		params = append(params, "sslmode=disable")
	}

	return databaseURL + "?" + strings.Join(params, "&")
}
