package model

// RequestIDHeader carries the request id between clients, the gateway and the backend.
const RequestIDHeader = "X-Request-ID"
