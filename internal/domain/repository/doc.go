// Package repository define las entidades de cuentas (users, groups, clients, tokens,
// authorization codes, permisos) y el contrato de almacenamiento AccountRepository.
//
// Las implementaciones concretas viven en internal/store/adapters/.
//
//	┌─────────────────────────────────────────────┐
//	│   access.Service / access.Session (core)    │
//	└─────────────────────────────────────────────┘
//	                     │
//	                     ▼
//	┌─────────────────────────────────────────────┐
//	│   domain/repository.AccountRepository       │
//	└─────────────────────────────────────────────┘
//	          │              │              │
//	          ▼              ▼              ▼
//	     adapters/      adapters/      adapters/
//	      memory        postgres         gorm
//
// Convenciones:
//   - Context siempre es el primer parámetro
//   - Los borrados son lógicos (State = StateDeleted), salvo tokens expirados
//   - Los Save* asignan ID y timestamps a entidades nuevas y retornan un ChangeMethod
package repository
