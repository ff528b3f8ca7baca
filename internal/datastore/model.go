package datastore

// Owner is a registered vehicle owner.
type Owner struct {
	ID    uint   `gorm:"column:id_propietario;primaryKey;autoIncrement"`
	Name  string `gorm:"column:nombre;size:100;not null"`
	Email string `gorm:"column:email;size:100"`
	Phone string `gorm:"column:telefono;size:20"`
}

// TableName keeps the table name used by existing registry databases.
func (Owner) TableName() string { return "propietarios" }

// Vehicle is a registered vehicle. Plate is stored normalized and is unique.
// An owner referenced by any vehicle cannot be deleted.
type Vehicle struct {
	ID      uint   `gorm:"column:id_vehiculo;primaryKey;autoIncrement"`
	Plate   string `gorm:"column:placa;size:20;not null;uniqueIndex:idx_vehiculos_placa"`
	Brand   string `gorm:"column:marca;size:50"`
	Model   string `gorm:"column:modelo;size:50"`
	Year    int    `gorm:"column:anio"`
	OwnerID uint   `gorm:"column:id_propietario;not null;index"`
	Owner   *Owner `gorm:"foreignKey:OwnerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName keeps the table name used by existing registry databases.
func (Vehicle) TableName() string { return "vehiculos" }

// VehicleRecord is a vehicle joined with its owner, the result of a plate
// search.
type VehicleRecord struct {
	VehicleID  uint   `json:"vehicle_id"`
	Plate      string `json:"plate"`
	Brand      string `json:"brand"`
	Model      string `json:"model"`
	Year       int    `json:"year"`
	OwnerID    uint   `json:"owner_id"`
	OwnerName  string `json:"owner_name"`
	OwnerPhone string `json:"owner_phone"`
	OwnerEmail string `json:"owner_email"`
}
