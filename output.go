package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"git.fiblab.net/sim/depotassign/assign"
)

func writeCSV(dir, name string, header []string, rows [][]string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// optional 可空数值列
func optional(v *float64) string {
	if v == nil {
		return ""
	}
	return ftoa(*v)
}

func writeSolveOutputs(dir string, ds *assign.Dataset, res *assign.Result) error {
	rows := lo.Map(res.Assignments, func(a assign.Assignment, _ int) []string {
		return []string{a.Route, a.Depot, ftoa(a.Count), ftoa(a.UnitCost)}
	})
	if err := writeCSV(dir, "assignments.csv",
		[]string{"route", "depot", "count", "unit_cost"}, rows); err != nil {
		return err
	}

	rows = lo.Map(res.Summary, func(s assign.DepotSummary, _ int) []string {
		return []string{s.Depot, ftoa(s.Assigned)}
	})
	if err := writeCSV(dir, "depot_summary.csv",
		[]string{"depot", "assigned"}, rows); err != nil {
		return err
	}

	// 对偶信息只有提取成功才落盘（区别于取值为零）
	if res.CapacityDuals != nil {
		depots := lo.Keys(res.CapacityDuals)
		sort.Strings(depots)
		rows = lo.Map(depots, func(d string, _ int) []string {
			return []string{d, ftoa(res.CapacityDuals[d])}
		})
		if err := writeCSV(dir, "capacity_duals.csv",
			[]string{"depot", "shadow_price"}, rows); err != nil {
			return err
		}
	}
	if res.ReducedCosts != nil {
		keys := lo.Keys(res.ReducedCosts)
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].Route != keys[j].Route {
				return keys[i].Route < keys[j].Route
			}
			return keys[i].Depot < keys[j].Depot
		})
		rows = lo.Map(keys, func(k assign.PairKey, _ int) []string {
			return []string{k.Route, k.Depot, ftoa(res.ReducedCosts[k])}
		})
		if err := writeCSV(dir, "reduced_costs.csv",
			[]string{"route", "depot", "reduced_cost"}, rows); err != nil {
			return err
		}
	}
	return writeSummary(dir, ds, res)
}

// writeSummary 简短的人读执行摘要
func writeSummary(dir string, ds *assign.Dataset, res *assign.Result) error {
	var b strings.Builder
	fmt.Fprintf(&b, "date: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&b, "routes: %d\n", len(ds.Routes))
	fmt.Fprintf(&b, "depots: %d\n", len(ds.Depots))
	fmt.Fprintf(&b, "total demand: %d\n", ds.TotalDemand())
	fmt.Fprintf(&b, "objective: %.2f\n", res.Objective)
	fmt.Fprintf(&b, "total cost: %.2f\n", res.TotalCost)
	if res.OverflowCount > 0 {
		fmt.Fprintf(&b, "overflow: %.2f vehicles (penalized cost %.2f)\n",
			res.OverflowCount, res.OverflowCost)
	} else if res.CapacityDeficit > 0 {
		fmt.Fprintf(&b, "capacity deficit (without overflow): %.2f vehicles\n", res.CapacityDeficit)
	}
	if len(res.Saturated) > 0 {
		fmt.Fprintf(&b, "saturated depots: %s\n", strings.Join(res.Saturated, ","))
	}
	return os.WriteFile(filepath.Join(dir, "summary.txt"), []byte(b.String()), 0o644)
}

func writeSweep(dir string, records []assign.SweepRecord) error {
	rows := lo.Map(records, func(r assign.SweepRecord, _ int) []string {
		return []string{
			ftoa(r.Scale),
			optional(r.Objective),
			strings.Join(r.Saturated, ","),
			strings.Join(r.ShortRoutes, ","),
			r.Note,
		}
	})
	return writeCSV(dir, "sensitivity_capacities.csv",
		[]string{"scale", "objective", "saturated_depots", "short_routes", "note"}, rows)
}

func writeShadow(dir string, records []assign.ShadowRecord) error {
	rows := lo.Map(records, func(r assign.ShadowRecord, _ int) []string {
		return []string{
			r.Depot,
			ftoa(r.BaseScale),
			strconv.Itoa(r.BaseCapacity),
			ftoa(r.BaseObj),
			optional(r.PerturbedObj),
			optional(r.Delta),
			r.Note,
		}
	})
	return writeCSV(dir, "shadow_price_by_depot.csv",
		[]string{"depot", "base_scale", "base_capacity", "base_objective", "objective_plus1", "delta", "note"}, rows)
}
