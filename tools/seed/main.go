// Command seed provisions a demo tenant with realistic records for local
// development: an admin login, customers, vehicles, processes, document
// workflows and financial entries. It talks to Postgres directly and
// optionally mirrors the seeded rows into the realtime store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/despasys/despasys/libs/db"
	"github.com/despasys/despasys/libs/rtdb"
)

func main() {
	var (
		dbURL     = flag.String("database-url", getenv("DATABASE_URL", ""), "postgres connection url")
		redisAddr = flag.String("redis-addr", getenv("REDIS_ADDR", ""), "redis address for the realtime mirror (optional)")
		domain    = flag.String("domain", getenv("SEED_DOMAIN", "demo.despasys.local"), "tenant domain")
		email     = flag.String("admin-email", getenv("SEED_ADMIN_EMAIL", "admin@demo.despasys.local"), "admin login")
		password  = flag.String("admin-password", getenv("SEED_ADMIN_PASSWORD", "admin123"), "admin password")
	)
	flag.Parse()

	if *dbURL == "" {
		fatal("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pool, err := db.Open(ctx, *dbURL)
	if err != nil {
		fatal("db connect: " + err.Error())
	}
	defer pool.Close()

	var store rtdb.Store
	if *redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: *redisAddr})
		defer func() { _ = rdb.Close() }()
		store = rtdb.NewRedisStore(rdb, getenv("RTDB_PREFIX", "rtdb"))
	}

	s := &seeder{pool: pool, store: store}
	if err := s.run(ctx, *domain, *email, *password); err != nil {
		fatal(err.Error())
	}
	fmt.Println("seed complete")
	fmt.Printf("tenant: %s\nlogin:  %s / %s\n", *domain, *email, *password)
}

type seeder struct {
	pool  *db.Pool
	store rtdb.Store
}

func (s *seeder) run(ctx context.Context, domain, email, password string) error {
	tenantID, err := s.tenant(ctx, domain)
	if err != nil {
		return fmt.Errorf("seed tenant: %w", err)
	}
	if err := s.admin(ctx, tenantID, email, password); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	customerIDs, err := s.customers(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("seed customers: %w", err)
	}
	vehicles, err := s.vehicles(ctx, tenantID, customerIDs)
	if err != nil {
		return fmt.Errorf("seed vehicles: %w", err)
	}
	if err := s.processes(ctx, tenantID, customerIDs, vehicles); err != nil {
		return fmt.Errorf("seed processes: %w", err)
	}
	if err := s.documents(ctx, tenantID, customerIDs); err != nil {
		return fmt.Errorf("seed documents: %w", err)
	}
	if err := s.finance(ctx, tenantID, customerIDs); err != nil {
		return fmt.Errorf("seed finance: %w", err)
	}
	return nil
}

func (s *seeder) tenant(ctx context.Context, domain string) (string, error) {
	id := uuid.NewString()
	err := s.pool.QueryRow(ctx, `
		INSERT INTO tenants (id, name, domain, plan)
		VALUES ($1, 'Despachante Demo', $2, 'pro')
		ON CONFLICT (domain) DO UPDATE SET name = EXCLUDED.name
		RETURNING id::text
	`, id, domain).Scan(&id)
	return id, err
}

func (s *seeder) admin(ctx context.Context, tenantID, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO users (id, tenant_id, email, name, password_hash, role, active)
		VALUES ($1, $2, $3, 'Administrador', $4, 'admin', true)
		ON CONFLICT (email) DO UPDATE SET password_hash = EXCLUDED.password_hash
	`, uuid.NewString(), tenantID, email, string(hash))
	return err
}

type seedCustomer struct {
	name, document, personType, phone, email, city, state string
}

var demoCustomers = []seedCustomer{
	{"Maria Souza", "12345678901", "PESSOA_FISICA", "11999990001", "maria.souza@example.com", "São Paulo", "SP"},
	{"João Pereira", "23456789012", "PESSOA_FISICA", "11999990002", "joao.pereira@example.com", "Campinas", "SP"},
	{"Ana Lima", "34567890123", "PESSOA_FISICA", "21999990003", "ana.lima@example.com", "Rio de Janeiro", "RJ"},
	{"Transportadora Horizonte LTDA", "12345678000190", "PESSOA_JURIDICA", "1133330001", "contato@horizonte.example.com", "São Paulo", "SP"},
	{"Auto Center Silva ME", "98765432000110", "PESSOA_JURIDICA", "1933330002", "oficina@silva.example.com", "Piracicaba", "SP"},
}

func (s *seeder) customers(ctx context.Context, tenantID string) ([]string, error) {
	ids := make([]string, 0, len(demoCustomers))
	for _, c := range demoCustomers {
		var id string
		err := s.pool.QueryRow(ctx, `
			INSERT INTO customers (id, tenant_id, name, document, person_type, phone, email, city, state, address, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, '', 'ATIVO')
			ON CONFLICT (tenant_id, document) DO UPDATE SET name = EXCLUDED.name
			RETURNING id::text
		`, uuid.NewString(), tenantID, c.name, c.document, c.personType, c.phone, c.email, c.city, c.state).Scan(&id)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
		s.mirror(ctx, tenantID, "clients", id, map[string]any{
			"id": id, "name": c.name, "document": c.document, "personType": c.personType,
			"phone": c.phone, "email": c.email, "city": c.city, "state": c.state, "status": "ATIVO",
		})
	}
	return ids, nil
}

type seedVehicle struct {
	plate, renavam, brand, model, color string
	year                                int
}

var demoVehicles = []seedVehicle{
	{"ABC1D23", "00123456789", "Volkswagen", "Gol 1.0", "Prata", 2019},
	{"DEF4G56", "00234567890", "Fiat", "Strada Endurance", "Branco", 2022},
	{"GHI7J89", "00345678901", "Chevrolet", "Onix LT", "Preto", 2021},
	{"JKL0M12", "00456789012", "Scania", "R450", "Vermelho", 2018},
	{"NOP3Q45", "00567890123", "Honda", "CG 160 Fan", "Azul", 2023},
}

func (s *seeder) vehicles(ctx context.Context, tenantID string, customerIDs []string) ([]string, error) {
	ids := make([]string, 0, len(demoVehicles))
	for i, v := range demoVehicles {
		customerID := customerIDs[i%len(customerIDs)]
		var id string
		err := s.pool.QueryRow(ctx, `
			INSERT INTO vehicles (id, tenant_id, customer_id, plate, renavam, chassis, brand, model, model_year, color)
			VALUES ($1, $2, $3, $4, $5, '', $6, $7, $8, $9)
			ON CONFLICT (tenant_id, plate) DO UPDATE SET model = EXCLUDED.model
			RETURNING id::text
		`, uuid.NewString(), tenantID, customerID, v.plate, v.renavam, v.brand, v.model, v.year, v.color).Scan(&id)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
		s.mirror(ctx, tenantID, "vehicles", id, map[string]any{
			"id": id, "plate": v.plate, "renavam": v.renavam, "brand": v.brand,
			"model": v.model, "modelYear": v.year, "color": v.color, "customerId": customerID,
		})
	}
	return ids, nil
}

func (s *seeder) processes(ctx context.Context, tenantID string, customerIDs, vehicleIDs []string) error {
	kinds := []struct {
		kind, status, priority, description string
	}{
		{"LICENCIAMENTO", "PENDING", "MEDIUM", "Licenciamento anual 2026"},
		{"TRANSFERENCIA", "IN_PROGRESS", "HIGH", "Transferência de propriedade com reconhecimento de firma"},
		{"DESBLOQUEIO", "WAITING_DOC", "HIGH", "Desbloqueio judicial, aguardando ofício"},
		{"REGISTRO", "COMPLETED", "LOW", "Primeiro emplacamento veículo zero km"},
	}
	for i, p := range kinds {
		number := fmt.Sprintf("PRC-%s-%04d", time.Now().UTC().Format("20060102"), i+1)
		_, err := s.pool.Exec(ctx, `
			INSERT INTO processes (id, tenant_id, number, type, status, priority, customer_id, vehicle_id, description, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'seed')
			ON CONFLICT (tenant_id, number) DO NOTHING
		`, uuid.NewString(), tenantID, number, p.kind, p.status, p.priority,
			customerIDs[i%len(customerIDs)], vehicleIDs[i%len(vehicleIDs)], p.description)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *seeder) documents(ctx context.Context, tenantID string, customerIDs []string) error {
	year := time.Now().UTC().Year()
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO licensings (id, tenant_id, customer_id, vehicle_plate, reference_year, due_date, amount, status)
		VALUES ($1, $2, $3, 'ABC1D23', $4, now()::date + 30, 160.22, 'PENDING')
	`, uuid.NewString(), tenantID, customerIDs[0], year); err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO transfers (id, tenant_id, vehicle_plate, seller_id, buyer_id, amount, status)
		VALUES ($1, $2, 'DEF4G56', $3, $4, 42000.00, 'PENDING')
	`, uuid.NewString(), tenantID, customerIDs[0], customerIDs[1]); err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO registrations (id, tenant_id, customer_id, vehicle_plate, kind, status)
		VALUES ($1, $2, $3, 'NOP3Q45', 'PRIMEIRO_EMPLACAMENTO', 'IN_PROGRESS')
	`, uuid.NewString(), tenantID, customerIDs[2]); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO unlocks (id, tenant_id, customer_id, vehicle_plate, block_kind, authority, status)
		VALUES ($1, $2, $3, 'GHI7J89', 'JUDICIAL', 'TJ-SP', 'PENDING')
	`, uuid.NewString(), tenantID, customerIDs[1])
	return err
}

func (s *seeder) finance(ctx context.Context, tenantID string, customerIDs []string) error {
	entries := []struct {
		kind, category, description, amount, status string
	}{
		{"RECEITA", "SERVICOS", "Honorários licenciamento ABC1D23", "350.00", "PAGO"},
		{"RECEITA", "SERVICOS", "Honorários transferência DEF4G56", "650.00", "PENDENTE"},
		{"DESPESA", "TAXAS", "Taxa DETRAN licenciamento", "160.22", "PAGO"},
		{"DESPESA", "OPERACIONAL", "Motoboy cartório", "45.00", "PAGO"},
	}
	for i, e := range entries {
		number := fmt.Sprintf("TXN-%s-%04d", time.Now().UTC().Format("20060102"), i+1)
		_, err := s.pool.Exec(ctx, `
			INSERT INTO transactions (id, tenant_id, number, customer_id, kind, category, description, amount, status, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9, '')
			ON CONFLICT (tenant_id, number) DO NOTHING
		`, uuid.NewString(), tenantID, number, customerIDs[i%len(customerIDs)],
			e.kind, e.category, e.description, e.amount, e.status)
		if err != nil {
			return err
		}
	}
	return nil
}

// mirror best-effort copies a seeded row into the realtime store.
func (s *seeder) mirror(ctx context.Context, tenantID, entityType, id string, doc map[string]any) {
	if s.store == nil {
		return
	}
	doc["lastSynced"] = time.Now().UnixMilli()
	path := rtdb.Join("tenants", tenantID, entityType, id)
	if err := s.store.Set(ctx, path, doc); err != nil {
		fmt.Fprintf(os.Stderr, "warn: mirror %s: %v\n", path, err)
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, "error: "+msg)
	os.Exit(1)
}
