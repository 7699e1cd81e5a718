package outbox

const workoutCachedSchema = `{
  "type": "object",
  "title": "WorkoutCached",
  "properties": {
    "workout_id": {"type": "integer"},
    "started_at": {"type": "string", "format": "date-time"},
    "duration_ms": {"type": "integer", "minimum": 0},
    "step_count": {"type": "integer", "minimum": 0},
    "activity_type": {"type": "integer"},
    "cached_at": {"type": "string", "format": "date-time"}
  },
  "required": ["workout_id", "started_at", "duration_ms", "step_count", "activity_type", "cached_at"],
  "additionalProperties": false
}`

const syncRequestedSchema = `{
  "type": "object",
  "title": "SyncRequested",
  "properties": {
    "requested_at": {"type": "string", "format": "date-time"},
    "reset": {"type": "boolean"}
  },
  "required": ["requested_at"],
  "additionalProperties": false
}`

const reportRequestedSchema = `{
  "type": "object",
  "title": "ReportRequested",
  "properties": {
    "timeframe": {"type": "string", "enum": ["beginning_of_day", "beginning_of_week", "beginning_of_month", "last_month"]},
    "requested_at": {"type": "string", "format": "date-time"}
  },
  "required": ["timeframe", "requested_at"],
  "additionalProperties": false
}`
