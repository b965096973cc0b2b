package analyze

import (
	"encoding/json"
	"fmt"
)

// pgPlanNode mirrors the fields we read from EXPLAIN (FORMAT JSON) output.
type pgPlanNode struct {
	NodeType  string       `json:"Node Type"`
	Relation  string       `json:"Relation Name"`
	TotalCost float64      `json:"Total Cost"`
	PlanRows  int64        `json:"Plan Rows"`
	Plans     []pgPlanNode `json:"Plans"`
}

// parsePostgresPlan digests EXPLAIN (FORMAT JSON) output: the root node's
// total cost and row estimate, plus an index suggestion for every
// sequential scan in the tree.
func parsePostgresPlan(doc []byte) (planEstimate, error) {
	var root []struct {
		Plan pgPlanNode `json:"Plan"`
	}
	if err := json.Unmarshal(doc, &root); err != nil {
		return planEstimate{}, fmt.Errorf("parse postgres plan: %w", err)
	}
	if len(root) == 0 {
		return planEstimate{}, fmt.Errorf("parse postgres plan: empty document")
	}

	plan := root[0].Plan
	est := planEstimate{
		Cost: plan.TotalCost,
		Rows: plan.PlanRows,
	}
	walkPgPlan(plan, &est)
	return est, nil
}

func walkPgPlan(node pgPlanNode, est *planEstimate) {
	if node.NodeType == "Seq Scan" && node.Relation != "" {
		est.Suggestions = append(est.Suggestions,
			"sequential scan on "+node.Relation+": consider an index covering the filtered columns")
	}
	for _, child := range node.Plans {
		walkPgPlan(child, est)
	}
}
