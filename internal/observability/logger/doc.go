// Package logger expone un logger Zap compartido con scoping por contexto.
//
// Init se llama una vez desde cmd/nuscien; el resto del código obtiene el logger
// con From(ctx), que devuelve el logger "scoped" inyectado por el middleware HTTP
// (request_id, path) o el logger base si no hay ninguno.
//
//	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("access.signin.password"))
//	log.Info("token issued", logger.UserID(u.ID), logger.GrantType("password"))
//
// Nunca logueamos passwords, secrets de clientes ni valores de tokens.
package logger
