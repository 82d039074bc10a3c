package pipeline

import "supportflow/internal/llm"

// Canonical JSON schemas for the five stage outputs. Each schema is the
// single source of truth for its shape; the Go result structs in state.go
// must stay in sync with these.

var triageSchema = llm.MustSchema("TriageResult", 500, `{
  "type": "object",
  "required": ["intent", "priority", "confidence", "reasoning"],
  "properties": {
    "intent": {
      "type": "string",
      "description": "Classified intent, lowercase with underscores (e.g. refund_request, shipping_inquiry)"
    },
    "priority": {
      "type": "string",
      "enum": ["low", "medium", "high", "urgent"],
      "description": "Ticket priority level"
    },
    "confidence": {
      "type": "number",
      "minimum": 0.0,
      "maximum": 1.0,
      "description": "Confidence in the classification"
    },
    "reasoning": {
      "type": "string",
      "description": "Explanation of the classification"
    },
    "requires_order_lookup": {
      "type": "boolean",
      "description": "Whether order information is needed to handle this ticket"
    },
    "suggested_tags": {
      "type": "array",
      "items": {"type": "string"},
      "description": "Suggested tags for the ticket"
    }
  }
}`)

var researchSchema = llm.MustSchema("ResearchResult", 500, `{
  "type": "object",
  "required": ["summary", "confidence"],
  "properties": {
    "summary": {
      "type": "string",
      "description": "Concise summary of relevant knowledge base findings"
    },
    "confidence": {
      "type": "number",
      "minimum": 0.0,
      "maximum": 1.0,
      "description": "Confidence in the findings"
    },
    "relevant_articles": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "source": {"type": "string"},
          "content": {"type": "string"}
        }
      }
    },
    "search_queries_used": {
      "type": "array",
      "items": {"type": "string"}
    }
  }
}`)

var policySchema = llm.MustSchema("PolicyResult", 500, `{
  "type": "object",
  "required": ["is_eligible", "reason", "confidence"],
  "properties": {
    "is_eligible": {
      "type": "boolean",
      "description": "Whether the customer's request is eligible"
    },
    "reason": {
      "type": "string",
      "description": "Explanation of the eligibility decision"
    },
    "confidence": {
      "type": "number",
      "minimum": 0.0,
      "maximum": 1.0,
      "description": "Confidence in the decision"
    }
  }
}`)

var responseSchema = llm.MustSchema("ResponseResult", 800, `{
  "type": "object",
  "required": ["response_text", "confidence"],
  "properties": {
    "response_text": {
      "type": "string",
      "description": "The drafted response to the customer"
    },
    "tone": {
      "type": "string",
      "description": "Tone of the response (e.g. professional, empathetic)"
    },
    "includes_apology": {
      "type": "boolean",
      "description": "Whether the response includes an apology"
    },
    "includes_action_items": {
      "type": "array",
      "items": {"type": "string"},
      "description": "Action items mentioned in the response"
    },
    "confidence": {
      "type": "number",
      "minimum": 0.0,
      "maximum": 1.0,
      "description": "Confidence in response quality"
    },
    "requires_human_review": {
      "type": "boolean",
      "description": "Whether a human should review before sending"
    }
  }
}`)

var escalationSchema = llm.MustSchema("EscalationResult", 300, `{
  "type": "object",
  "required": ["should_escalate", "reasons"],
  "properties": {
    "should_escalate": {
      "type": "boolean",
      "description": "Whether to escalate the ticket to a human"
    },
    "reasons": {
      "type": "array",
      "items": {"type": "string"},
      "description": "Reasons for the escalation decision"
    },
    "overall_confidence": {
      "type": "number",
      "minimum": 0.0,
      "maximum": 1.0,
      "description": "Overall confidence across the pipeline"
    },
    "recommended_specialist": {
      "type": "string",
      "description": "Recommended specialist type if escalating"
    }
  }
}`)
