package analyze

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cast"
)

// parseMySQLPlan digests EXPLAIN FORMAT=JSON output: the query block's
// estimated cost plus a suggestion for every full table scan. MySQL
// serializes cost numbers as strings inside cost_info objects.
func parseMySQLPlan(doc []byte) (planEstimate, error) {
	var root map[string]any
	if err := json.Unmarshal(doc, &root); err != nil {
		return planEstimate{}, fmt.Errorf("parse mysql plan: %w", err)
	}
	block, ok := root["query_block"].(map[string]any)
	if !ok {
		return planEstimate{}, fmt.Errorf("parse mysql plan: missing query_block")
	}

	var est planEstimate
	if ci, ok := block["cost_info"].(map[string]any); ok {
		est.Cost = cast.ToFloat64(ci["query_cost"])
	}
	walkMySQLPlan(block, &est)
	return est, nil
}

// walkMySQLPlan descends the query block looking for table access nodes.
func walkMySQLPlan(node any, est *planEstimate) {
	switch n := node.(type) {
	case map[string]any:
		if table, ok := n["table"].(map[string]any); ok {
			if cast.ToString(table["access_type"]) == "ALL" {
				name := cast.ToString(table["table_name"])
				if name != "" {
					est.Suggestions = append(est.Suggestions,
						"full scan on "+name+": consider an index covering the filtered columns")
				}
			}
			if rows := table["rows_examined_per_scan"]; rows != nil {
				if r := cast.ToInt64(rows); r > est.Rows {
					est.Rows = r
				}
			}
		}
		for _, v := range n {
			walkMySQLPlan(v, est)
		}
	case []any:
		for _, v := range n {
			walkMySQLPlan(v, est)
		}
	}
}
