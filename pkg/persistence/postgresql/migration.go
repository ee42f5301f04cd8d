package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Domain entities read by the engine
			CREATE TABLE tenants (
				id TEXT PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				business_name VARCHAR(255),
				email VARCHAR(255),
				business_phone VARCHAR(64),
				business_address TEXT,
				business_city VARCHAR(128),
				business_state VARCHAR(64),
				business_zip VARCHAR(32),
				business_website TEXT,
				timezone VARCHAR(64)
			);

			CREATE TABLE contacts (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
				name VARCHAR(255),
				email VARCHAR(255),
				phone VARCHAR(64),
				status VARCHAR(64)
			);

			CREATE TABLE bookings (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
				contact_id TEXT,
				contact_email VARCHAR(255),
				service_name VARCHAR(255),
				package_name VARCHAR(255),
				scheduled_at TIMESTAMP WITH TIME ZONE,
				duration_minutes INTEGER NOT NULL DEFAULT 0,
				total_price BIGINT NOT NULL DEFAULT 0,
				status VARCHAR(64) NOT NULL,
				notes TEXT
			);

			CREATE TABLE invoices (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
				contact_id TEXT,
				booking_id TEXT,
				invoice_number VARCHAR(64),
				contact_name VARCHAR(255),
				contact_email VARCHAR(255),
				status VARCHAR(64) NOT NULL,
				issue_date TIMESTAMP WITH TIME ZONE NOT NULL,
				due_date TIMESTAMP WITH TIME ZONE NOT NULL,
				line_items JSONB NOT NULL DEFAULT '[]',
				subtotal BIGINT NOT NULL DEFAULT 0,
				total BIGINT NOT NULL DEFAULT 0,
				balance_due BIGINT NOT NULL DEFAULT 0,
				deposit_paid_at TIMESTAMP WITH TIME ZONE,
				paid_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE UNIQUE INDEX idx_invoices_booking_id ON invoices(booking_id) WHERE booking_id IS NOT NULL;

			CREATE TABLE payments (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
				contact_id TEXT,
				invoice_id TEXT,
				amount BIGINT NOT NULL DEFAULT 0,
				status VARCHAR(64) NOT NULL,
				method VARCHAR(64),
				receipt_url TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE TABLE email_templates (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
				system_key VARCHAR(128),
				is_system BOOLEAN NOT NULL DEFAULT FALSE,
				name VARCHAR(255) NOT NULL,
				category VARCHAR(64),
				subject TEXT NOT NULL,
				body TEXT NOT NULL,
				description TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE UNIQUE INDEX idx_email_templates_system_key ON email_templates(tenant_id, system_key) WHERE system_key IS NOT NULL;
		`,
		2: `
			-- Tags and one association table per entity kind
			CREATE TABLE tags (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
				name VARCHAR(255) NOT NULL,
				type VARCHAR(32) NOT NULL CHECK (type IN ('invoice', 'booking', 'payment', 'contact', 'general')),
				color VARCHAR(32),
				description TEXT,
				is_system BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				UNIQUE (tenant_id, name)
			);

			CREATE INDEX idx_tags_tenant_type ON tags(tenant_id, type);

			CREATE TABLE invoice_tags (
				invoice_id TEXT NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
				tag_id TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (invoice_id, tag_id)
			);

			CREATE TABLE booking_tags (
				booking_id TEXT NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
				tag_id TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (booking_id, tag_id)
			);

			CREATE TABLE payment_tags (
				payment_id TEXT NOT NULL REFERENCES payments(id) ON DELETE CASCADE,
				tag_id TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (payment_id, tag_id)
			);

			CREATE TABLE contact_tags (
				contact_id TEXT NOT NULL REFERENCES contacts(id) ON DELETE CASCADE,
				tag_id TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (contact_id, tag_id)
			);
		`,
		3: `
			-- Workflows and the run ledger
			CREATE TABLE workflows (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
				name VARCHAR(255) NOT NULL,
				description TEXT,
				trigger_type VARCHAR(128) NOT NULL,
				trigger_tag_id TEXT REFERENCES tags(id) ON DELETE SET NULL,
				active BOOLEAN NOT NULL DEFAULT TRUE,
				delay_minutes INTEGER NOT NULL DEFAULT 0 CHECK (delay_minutes >= 0),
				actions JSONB NOT NULL DEFAULT '[]',
				system_key VARCHAR(128),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_trigger ON workflows(tenant_id, trigger_type) WHERE active;
			CREATE UNIQUE INDEX idx_workflows_system_key ON workflows(tenant_id, system_key) WHERE system_key IS NOT NULL;

			CREATE TABLE workflow_runs (
				id TEXT PRIMARY KEY,
				workflow_id TEXT NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				tenant_id TEXT NOT NULL,
				contact_id TEXT,
				trigger VARCHAR(128) NOT NULL,
				status VARCHAR(32) NOT NULL CHECK (status IN ('pending', 'running', 'completed', 'failed')),
				results JSONB,
				snapshot JSONB,
				scheduled_for TIMESTAMP WITH TIME ZONE,
				error TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_workflow_runs_pending ON workflow_runs(scheduled_for) WHERE status = 'pending';
			CREATE INDEX idx_workflow_runs_workflow_id ON workflow_runs(workflow_id, created_at);
		`,
	}
}
