// File: internal/usecase/agents.go
package usecase

import (
	"fmt"
	"sort"
	"strings"

	"clm-paralegal/internal/domain/model"
)

// agent is one fixed prompt template plus its reply post-processing.
type agent struct {
	kind model.AnalysisKind
	// prompt renders the instruction for one contract text.
	prompt func(contract string) string
	// clean post-processes a successful reply; nil keeps it verbatim.
	clean func(reply string) string
	// unavailable is reported when the call succeeded but carried no text.
	unavailable string
}

const riskPrompt = `You are a senior legal risk analyst.

Analyze the following contract and identify risks.
Focus on:
- One-sided clauses
- Unlimited liability
- Missing termination rights
- Excessive penalties
- Ambiguous terms

Return the result in JSON with:
- risk_level
- risks
- suggestions

Contract:
%s
`

const biasPrompt = `You are a contract fairness analyzer.

Analyze the contract and determine:
- Which party is favored (Client / Vendor / Neutral)
- Why (list reasons)
- Give a bias score from -5 (client heavy) to +5 (vendor heavy)

Contract:
%s
`

const fraudPrompt = `You are a contract fraud-risk analyst.

Analyze the contract for fraud-related red flags, such as:
- Unusual or rushed payment terms (e.g., upfront full payment, wire-only)
- Vague or missing party identity / authority
- Clauses that obscure who is liable or who performs work
- Pressure tactics or urgency language
- Missing or weak dispute resolution / recourse
- Inconsistencies between parties, amounts, or deliverables
- Any other indicators that could suggest fraud risk

Provide:
1. Overall fraud risk level (Low / Medium / High)
2. List of specific indicators found (or "None identified")
3. Brief reasoning for each
4. Practical next steps (e.g., verify identity, get legal review)

Do NOT provide legal advice. Provide decision-support insights only.

Contract:
%s
`

const statutePrompt = `You are a legal statute mapping assistant.

For the contract:
- Identify applicable laws
- Map clauses to statutes
- Explain if any statute can override or limit a clause
- Use simple explanations

Do NOT give legal advice. Explain educationally.

Contract:
%s
`

const stressPrompt = `You are a legal risk simulation assistant.

Simulate 2 realistic breach scenarios based on the contract:
1. Vendor breach
2. Client breach

For each scenario, answer:
- Who is legally at fault?
- Who is protected by the contract?
- Who is likely to win in court?
- Why (in simple terms)

Contract:
%s
`

const summaryPrompt = `You are a legal paralegal.

Summarize the following contract in simple English.
Mention:
- Duration
- Payment terms
- Termination conditions

Contract:
%s
`

const legalIntelligencePrompt = `You are a legal intelligence assistant for a Contract Lifecycle Management (CLM) system.

Perform the following:
1. Identify applicable laws based on jurisdiction and context
2. Explain those laws in simple language
3. Detect compliance gaps or missing protections
4. Detect ambiguous or vague language
5. Suggest safer and clearer wording
6. Recommend whether legal review is required

IMPORTANT:
- Do NOT give legal advice
- Do NOT suggest bypassing laws
- Do NOT decide law hierarchy
- Use cautious language

Return STRICTLY in JSON with keys:
- applicable_laws
- law_explanations
- compliance_gaps
- ambiguous_clauses
- why_ambiguous
- safe_suggestions
- review_recommendation

Contract:
%s
`

func fill(t string) func(string) string {
	return func(contract string) string { return fmt.Sprintf(t, contract) }
}

var agents = map[model.AnalysisKind]agent{
	model.AnalysisRisk: {
		kind:        model.AnalysisRisk,
		prompt:      fill(riskPrompt),
		unavailable: "Unable to analyze risks.",
	},
	model.AnalysisBias: {
		kind:        model.AnalysisBias,
		prompt:      fill(biasPrompt),
		unavailable: "Unable to analyze contract bias.",
	},
	model.AnalysisFraud: {
		kind:        model.AnalysisFraud,
		prompt:      fill(fraudPrompt),
		unavailable: "Unable to detect fraud indicators.",
	},
	model.AnalysisStatute: {
		kind:        model.AnalysisStatute,
		prompt:      fill(statutePrompt),
		unavailable: "Unable to map statutes.",
	},
	model.AnalysisStressTest: {
		kind:        model.AnalysisStressTest,
		prompt:      fill(stressPrompt),
		unavailable: "Unable to perform stress test analysis.",
	},
	model.AnalysisSummary: {
		kind:        model.AnalysisSummary,
		prompt:      fill(summaryPrompt),
		unavailable: "Unable to generate summary.",
	},
	model.AnalysisLegalIntelligence: {
		kind:        model.AnalysisLegalIntelligence,
		prompt:      fill(legalIntelligencePrompt),
		clean:       stripCodeFence,
		unavailable: "Unable to analyze legal intelligence.",
	},
}

// AgentKinds lists the individually runnable agents in a stable order.
func AgentKinds() []model.AnalysisKind {
	out := make([]model.AnalysisKind, 0, len(agents))
	for k := range agents {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// stripCodeFence removes a Markdown code fence the model sometimes wraps JSON in.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// recommendationPrompt joins the five upstream outputs in fixed order.
// Failed inputs are already replaced with placeholders by the caller.
func recommendationPrompt(inputs map[model.AnalysisKind]string, missing int) string {
	var b strings.Builder
	b.WriteString("You are a senior legal decision-support AI.\n\nBased on the following analyses:\n\n")
	sections := []struct {
		title string
		kind  model.AnalysisKind
	}{
		{"RISK ANALYSIS", model.AnalysisRisk},
		{"LEGAL INTELLIGENCE", model.AnalysisLegalIntelligence},
		{"BIAS ANALYSIS", model.AnalysisBias},
		{"STRESS TEST RESULTS", model.AnalysisStressTest},
		{"FRAUD RISK INDICATORS", model.AnalysisFraud},
	}
	for _, s := range sections {
		fmt.Fprintf(&b, "%s:\n%s\n\n", s.title, inputs[s.kind])
	}
	if missing > 0 {
		fmt.Fprintf(&b, "NOTE: %d of %d analyses above are unavailable. "+
			"State clearly that the recommendation is based on incomplete input.\n\n",
			missing, len(sections))
	}
	b.WriteString(`Now provide:

1. Overall Risk Level (Low / Medium / High)
2. Contract Fairness (Client-Favored / Vendor-Favored / Balanced)
3. Legal Stability (Stable / Questionable / Weak)
4. Final Recommendation:
   - Accept
   - Review Before Signing
   - Reject
5. Clear bullet-point reasoning
6. Practical next steps

Keep the explanation professional and structured.
Do NOT provide legal advice. Provide decision-support insights.
`)
	return b.String()
}

func unavailablePlaceholder(r model.AnalysisResult) string {
	if r.Failure == nil {
		return "[unavailable: missing]"
	}
	return fmt.Sprintf("[unavailable: %s]", r.Failure.Kind)
}
