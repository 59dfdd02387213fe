// Package report renders a cut-ticket: grouping bars into repeated
// cut patterns and writing a printable HTML summary, generalised from
// a single-stock-length solution shape to the multi-profile
// model.Plan/model.Bar shape.
package report

import (
	"fmt"
	"html/template"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/profileopt/cutstock/internal/lengthfmt"
	"github.com/profileopt/cutstock/internal/model"
)

// Pattern groups bars that share an identical (profile, cut-length
// multiset).
type Pattern struct {
	ProfileType model.ProfileID
	Cuts        []int64
	Count       int
	UsedLength  int64
	Remaining   int64
}

// GroupPatterns combines bars with the same profile and sorted cut
// sequence into patterns, ordered by descending count then ascending
// used length.
func GroupPatterns(bars []model.Bar) []Pattern {
	type key struct {
		profile model.ProfileID
		cuts    string
	}
	byKey := make(map[key]*Pattern)
	var order []key

	for _, b := range bars {
		lengths := make([]int64, len(b.Placements))
		for i, p := range b.Placements {
			lengths[i] = p.Length
		}
		sort.Slice(lengths, func(i, j int) bool { return lengths[i] > lengths[j] })

		parts := make([]string, len(lengths))
		for i, l := range lengths {
			parts[i] = fmt.Sprintf("%d", l)
		}
		k := key{profile: b.ProfileType, cuts: strings.Join(parts, "-")}

		if p, ok := byKey[k]; ok {
			p.Count++
			continue
		}
		byKey[k] = &Pattern{ProfileType: b.ProfileType, Cuts: lengths, Count: 1, UsedLength: b.UsedLength, Remaining: b.RemainingLength}
		order = append(order, k)
	}

	patterns := make([]Pattern, 0, len(byKey))
	for _, k := range order {
		patterns = append(patterns, *byKey[k])
	}
	sort.SliceStable(patterns, func(i, j int) bool {
		if patterns[i].Count == patterns[j].Count {
			return patterns[i].UsedLength < patterns[j].UsedLength
		}
		return patterns[i].Count > patterns[j].Count
	})
	return patterns
}

type cutInstr struct {
	Mark string
	Len  string
}

type patternData struct {
	Profile string
	Count   int
	CutList string
	Used    string
	Waste   string
	Instr   []cutInstr
}

type pageData struct {
	Date       string
	Algorithm  string
	StockCount int
	TotalStock string
	TotalWaste string
	Efficiency string
	Patterns   []patternData
}

// WriteHTML renders a cut-ticket for the plan to w, grouping bars into
// patterns and marking running cut offsets per pattern.
func WriteHTML(w io.Writer, p model.Plan, kerfWidthMM int64) error {
	patterns := GroupPatterns(p.Bars)
	var patData []patternData

	for _, pat := range patterns {
		cutStrs := make([]string, len(pat.Cuts))
		for i, c := range pat.Cuts {
			cutStrs[i] = lengthfmt.PrettyMM(c)
		}

		var running int64
		instr := make([]cutInstr, len(pat.Cuts))
		for i, c := range pat.Cuts {
			if i > 0 {
				running += kerfWidthMM
			}
			running += c
			instr[i] = cutInstr{Mark: lengthfmt.PrettyMM(running), Len: lengthfmt.PrettyMM(c)}
		}

		patData = append(patData, patternData{
			Profile: string(pat.ProfileType),
			Count:   pat.Count,
			CutList: strings.Join(cutStrs, ", "),
			Used:    lengthfmt.PrettyMM(pat.UsedLength),
			Waste:   lengthfmt.PrettyMM(pat.Remaining),
			Instr:   instr,
		})
	}

	data := pageData{
		Date:       time.Now().Format("2006-01-02"),
		Algorithm:  p.Algorithm,
		StockCount: p.Totals.StockCount,
		TotalStock: lengthfmt.PrettyMM(p.Totals.TotalLength),
		TotalWaste: lengthfmt.PrettyMM(p.Totals.TotalWaste),
		Efficiency: fmt.Sprintf("%.1f", p.Totals.Efficiency),
		Patterns:   patData,
	}

	t := template.Must(template.New("page").Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).Parse(pageTemplate))
	return t.Execute(w, data)
}

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <title>Cut Plan</title>
    <style>
        :root { --primary: #05445E; --accent: #189AB4; --light: #D4F1F4; --gray: #ECECEC; --border: #C7C7C7; }
        * { box-sizing: border-box; }
        body { font-family: "Segoe UI", Helvetica, Arial, sans-serif; margin: 0 auto; max-width: 960px; padding: 24px; color: #333; background: #fff; }
        h1 { color: var(--primary); margin-top: 0; }
        h2 { color: var(--accent); border-bottom: 2px solid var(--accent); padding-bottom: 4px; }
        table { width: 100%; border-collapse: collapse; margin: 16px 0; }
        th, td { padding: 10px 8px; border: 1px solid var(--border); }
        th { background: var(--gray); text-align: left; }
        tr:nth-child(even) td { background: var(--light); }
        .tag { display: inline-block; background: var(--accent); color: #fff; padding: 2px 8px; border-radius: 4px; font-size: 0.8rem; margin-left: 6px; }
    </style>
</head>
<body>
<h1>Cut Plan</h1>
<p>
    <strong>Date:</strong> {{.Date}}<br>
    <strong>Algorithm:</strong> {{.Algorithm}}<br>
    <strong>Stock bars used:</strong> {{.StockCount}}
</p>
<h2>Efficiency Summary</h2>
<ul>
    <li>Total stock used: {{.TotalStock}}</li>
    <li>Total waste: {{.TotalWaste}}</li>
    <li>Material efficiency: {{.Efficiency}}%</li>
</ul>
<h2>Cut Patterns</h2>
<table>
    <tr><th>Profile</th><th>Qty</th><th>Cuts</th><th>Used</th><th>Waste</th></tr>
    {{range .Patterns}}
    <tr>
        <td>{{.Profile}}</td>
        <td>{{.Count}}</td>
        <td>{{.CutList}}</td>
        <td>{{.Used}}</td>
        <td>{{.Waste}}</td>
    </tr>
    {{end}}
</table>
{{range $idx, $p := .Patterns}}
<h3>Pattern {{$idx | inc}} ({{$p.Profile}})<span class="tag">Qty {{$p.Count}}</span></h3>
<table>
    <tr><th>#</th><th>Mark At</th><th>Cut Piece</th></tr>
    {{range $i, $c := $p.Instr}}
    <tr><td>{{$i | inc}}</td><td>{{$c.Mark}}</td><td>{{$c.Len}}</td></tr>
    {{end}}
    <tr><td colspan="3">Remaining: {{$p.Waste}}</td></tr>
</table>
{{end}}
</body>
</html>`
