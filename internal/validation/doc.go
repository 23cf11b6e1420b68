// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

// Package validation validates request structs with go-playground/validator.
//
// A single validator instance is shared process-wide; it caches struct
// metadata and is safe for concurrent use. Field names in messages are the
// JSON names, so a failed device reading reports "device_id is required"
// rather than the Go field name.
//
// Custom tags:
//
//	sensortype  value is one of the known sensor types (temperature, humidity, ...)
//	finite      float is neither NaN nor infinite
//
// Failures convert to the API error envelope through ToAPIError:
//
//	if verr := validation.ValidateStruct(&reading); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
//	    return
//	}
package validation
