package notion

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// requiredProperties lists the property name → type pairs each database
// must carry before sync can run. Checked at boot so a misconfigured
// database fails the process, not the first webhook.
var requiredProperties = map[Table]map[string]string{
	TableTasks: {
		PropName:      "title",
		PropTodoistID: "rich_text",
		PropStatus:    "status",
		PropArea:      "relation",
		PropDeleted:   "checkbox",
	},
	TableAreas: {
		PropName:             "title",
		PropTodoistProjectID: "rich_text",
		PropDeleted:          "checkbox",
	},
}

// ValidateSetup retrieves both databases and checks that the integration
// can reach them and that the required properties exist with the expected
// types.
func (c *HTTPClient) ValidateSetup(ctx context.Context) error {
	for _, table := range []Table{TableTasks, TableAreas} {
		if c.DatabaseID(table) == "" {
			return fmt.Errorf("notion: no database id configured for %s", table)
		}

		var db struct {
			Properties map[string]struct {
				Type string `json:"type"`
			} `json:"properties"`
		}
		path := "/v1/databases/" + c.DatabaseID(table)
		if err := c.do(ctx, http.MethodGet, path, nil, &db); err != nil {
			return fmt.Errorf("notion: cannot access %s database: %w", table, err)
		}

		var missing []string
		for name, wantType := range requiredProperties[table] {
			prop, ok := db.Properties[name]
			if !ok {
				missing = append(missing, fmt.Sprintf("%s (%s)", name, wantType))
				continue
			}
			if prop.Type != wantType {
				missing = append(missing, fmt.Sprintf("%s (want %s, have %s)", name, wantType, prop.Type))
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("notion: %s database is missing properties: %s", table, strings.Join(missing, ", "))
		}
		c.logger.Info("validated database", "table", string(table), "properties", len(db.Properties))
	}
	return nil
}
