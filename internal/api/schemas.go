package api

import "github.com/profilemesh/gateway/internal/security"

// Body schemas for the mutating endpoints. The pipeline enforces these
// before the handlers run; handlers still re-check domain rules (enums,
// ownership) that shape validation cannot express.

func profileUpsertSchema() *security.Schema {
	return &security.Schema{
		Required: map[string]security.FieldRule{
			"name":  security.StringRule{Min: 1, Max: 120},
			"email": security.StringRule{Min: 3, Max: 254},
		},
		Optional: map[string]security.FieldRule{
			"bio":           security.StringRule{Max: 2000},
			"skills":        security.ArrayRule{Item: security.StringRule{Min: 1, Max: 60}, MaxItems: 50},
			"available_for": security.ArrayRule{Item: security.StringRule{Min: 1, Max: 60}, MaxItems: 20},
			"is_public":     security.BoolRule{},
			"is_active":     security.BoolRule{},
		},
	}
}

func appointmentCreateSchema() *security.Schema {
	return &security.Schema{
		Required: map[string]security.FieldRule{
			"profile_id":      security.StringRule{Min: 1, Max: 64},
			"requester_name":  security.StringRule{Min: 1, Max: 120},
			"requester_email": security.StringRule{Min: 3, Max: 254},
			"message":         security.StringRule{Min: 1, Max: 2000},
			"request_type": security.EnumRule{
				Values: []string{"appointment", "quote", "meeting"},
			},
		},
		Optional: map[string]security.FieldRule{
			"preferred_time": security.StringRule{Max: 120},
		},
	}
}

func statusUpdateSchema() *security.Schema {
	return &security.Schema{
		Required: map[string]security.FieldRule{
			"status": security.EnumRule{Values: []string{"pending", "accepted", "declined"}},
		},
	}
}

func mcpSearchSchema() *security.Schema {
	return &security.Schema{
		Optional: map[string]security.FieldRule{
			"query":  security.StringRule{Max: 200},
			"skills": security.ArrayRule{Item: security.StringRule{Min: 1, Max: 60}, MaxItems: 20},
		},
	}
}

func mcpMeetingSchema() *security.Schema {
	return &security.Schema{
		Required: map[string]security.FieldRule{
			"profile_id":      security.StringRule{Min: 1, Max: 64},
			"requester_name":  security.StringRule{Min: 1, Max: 120},
			"requester_email": security.StringRule{Min: 3, Max: 254},
			"message":         security.StringRule{Min: 1, Max: 2000},
		},
		Optional: map[string]security.FieldRule{
			"preferred_time": security.StringRule{Max: 120},
		},
	}
}

func loginSchema() *security.Schema {
	return &security.Schema{
		Required: map[string]security.FieldRule{
			"email": security.StringRule{Min: 3, Max: 254},
			"name":  security.StringRule{Min: 1, Max: 120},
		},
	}
}
