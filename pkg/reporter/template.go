package reporter

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>SEO Audit - {{.URL}}</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 1200px;
            margin: 0 auto;
            padding: 20px;
            background: #f5f5f5;
        }
        .header {
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            color: white;
            padding: 2rem;
            border-radius: 10px;
            margin-bottom: 2rem;
        }
        .card {
            background: white;
            border-radius: 10px;
            padding: 1.5rem;
            margin-bottom: 1.5rem;
            box-shadow: 0 2px 10px rgba(0,0,0,0.1);
        }
        .score-grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(200px, 1fr));
            gap: 1rem;
            margin: 1rem 0;
        }
        .score-item {
            text-align: center;
            padding: 1rem;
            background: #f8f9fa;
            border-radius: 8px;
        }
        .score-value {
            font-size: 2rem;
            font-weight: bold;
            color: #667eea;
        }
        .score-label {
            color: #666;
            font-size: 0.9rem;
            margin-top: 0.5rem;
        }
        .grade {
            display: inline-block;
            padding: 0.5rem 1rem;
            background: #28a745;
            color: white;
            border-radius: 5px;
            font-weight: bold;
            font-size: 1.2rem;
        }
        .degraded {
            background: #fff3cd;
            border-left: 4px solid #ffc107;
            padding: 1rem;
            border-radius: 4px;
        }
        .issue {
            background: white;
            border-left: 4px solid #ffc107;
            padding: 1rem;
            margin: 1rem 0;
            border-radius: 4px;
        }
        .issue.critical { border-left-color: #dc3545; }
        .issue.high { border-left-color: #fd7e14; }
        .issue.medium { border-left-color: #ffc107; }
        .issue.low { border-left-color: #28a745; }
        .recommendation {
            background: white;
            padding: 1.5rem;
            margin: 1rem 0;
            border-radius: 8px;
            box-shadow: 0 2px 5px rgba(0,0,0,0.1);
        }
        .badge {
            display: inline-block;
            padding: 0.25rem 0.75rem;
            border-radius: 4px;
            font-size: 0.85rem;
            font-weight: bold;
            margin-right: 0.5rem;
        }
        .badge-critical { background: #dc3545; color: white; }
        .badge-high { background: #fd7e14; color: white; }
        .badge-medium { background: #ffc107; color: #333; }
        .badge-low { background: #28a745; color: white; }
        .badge-fixed { background: #17a2b8; color: white; }
        pre { background: #f8f9fa; padding: 0.75rem; border-radius: 4px; overflow-x: auto; }
    </style>
</head>
<body>
    <div class="header">
        <h1>SEO Audit for {{.URL}}</h1>
        <p>Audit {{.AuditID}} generated on {{.Timestamp.Format "January 2, 2006 15:04 MST"}}</p>
    </div>

    {{if .Degraded}}
    <p class="degraded">The crawl hit the audit deadline; results cover only the pages reached.</p>
    {{end}}

    <div class="card">
        <h2>Summary</h2>
        <p>Grade: <span class="grade">{{grade .SEOScore}}</span></p>
        <div class="score-grid">
            <div class="score-item">
                <div class="score-value">{{printf "%.2f" .SEOScore}}</div>
                <div class="score-label">SEO Score</div>
            </div>
            <div class="score-item">
                <div class="score-value">{{.CrawlSummary.TotalPages}}</div>
                <div class="score-label">Pages Crawled</div>
            </div>
            <div class="score-item">
                <div class="score-value">{{.CrawlSummary.BrokenLinks}}</div>
                <div class="score-label">Broken Links</div>
            </div>
            <div class="score-item">
                <div class="score-value">{{printf "%.2f" .SimulatedImpact.EstimatedScoreAfterFixes}}</div>
                <div class="score-label">Score After Fixes</div>
            </div>
        </div>
        <p>Projected traffic +{{printf "%.2f" .SimulatedImpact.EstimatedTrafficImprovementPercent}}%,
           keyword ranking {{.SimulatedImpact.EstimatedKeywordRankingImprovement}},
           visible within {{.SimulatedImpact.TimeframeToSeeResultsDays}} days
           ({{.SimulatedImpact.ConfidenceLevel}} confidence).</p>
    </div>

    {{if .Issues}}
    <div class="card">
        <h2>Issues</h2>
        {{range .Issues}}
        <div class="issue {{.Severity}}">
            <h4>{{.Title}}</h4>
            <p>{{.Description}}</p>
            <p><small>{{.Count}} page(s){{range .AffectedPages}} &middot; {{.}}{{end}}</small></p>
        </div>
        {{end}}
    </div>
    {{end}}

    {{if .Recommendations}}
    <div class="card">
        <h2>Recommendations</h2>
        {{range .Recommendations}}
        <div class="recommendation">
            <span class="badge badge-{{.Severity}}">#{{.FixPriority}} {{.Severity}}</span>
            {{if eq .Status "fixed"}}<span class="badge badge-fixed">fixed</span>{{end}}
            <h4>{{.Title}}</h4>
            <p>{{.Description}}</p>
            <p><small>Difficulty: {{.Difficulty}} | {{.TimeToFixMinutes}} min | Ranking {{.EstimatedRankingImpact}} | Traffic {{.EstimatedTrafficImpact}}</small></p>
            {{if .Note}}<p><small>{{.Note}}</small></p>{{end}}
            <pre><code>{{.CodeSnippet}}</code></pre>
        </div>
        {{end}}
    </div>
    {{end}}
</body>
</html>
`
