package httpdebug

// swag generates docs.go / swagger.json from the annotations below and on
// the handlers in server.go; http-swagger serves the result at /swagger/.

// @title                obsctl debug API
// @version              1.0.0
// @description          Read-only introspection of device state and scheduler health.
