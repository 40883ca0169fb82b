package syncer

// Reference table reads. Flags are cast to text so Yes/No and 0/1 columns scan alike.
const (
	selectResellers = `SELECT Reseller_Id AS id, COALESCE(ResellerName, '') AS name,
		COALESCE(CAST(ISEnable AS CHAR), '') AS enabled
		FROM Hreseller`

	selectVisps = `SELECT Visp_Id AS id, COALESCE(VispName, '') AS name,
		COALESCE(CAST(ISEnable AS CHAR), '') AS enabled
		FROM Hvisp`

	selectCenters = `SELECT Center_Id AS id, COALESCE(CenterName, '') AS name,
		COALESCE(CAST(ISEnable AS CHAR), '') AS enabled,
		COALESCE(CAST(VispAccess AS CHAR), '') AS visp_access
		FROM Hcenter`

	selectSupporters = `SELECT Supporter_Id AS id, COALESCE(SupporterName, '') AS name,
		COALESCE(CAST(ISEnable AS CHAR), '') AS enabled
		FROM Hsupporter`

	selectStatuses = `SELECT Status_Id AS id, COALESCE(StatusName, '') AS name,
		COALESCE(CAST(ISEnable AS CHAR), '') AS enabled,
		COALESCE(CAST(ResellerAccess AS CHAR), '') AS reseller_access,
		COALESCE(CAST(VispAccess AS CHAR), '') AS visp_access
		FROM Hstatus`

	selectServices = `SELECT Service_Id AS id, COALESCE(ServiceName, '') AS name,
		COALESCE(CAST(ISEnable AS CHAR), '') AS enabled,
		COALESCE(CAST(IsDel AS CHAR), '') AS deleted,
		COALESCE(CAST(ResellerAccess AS CHAR), '') AS reseller_access,
		COALESCE(CAST(VispAccess AS CHAR), '') AS visp_access
		FROM Hservice`

	selectServiceResellers = `SELECT Service_Id AS entity_id, Reseller_Id AS owner_id,
		COALESCE(CAST(Checked AS CHAR), '') AS checked
		FROM Hservice_reselleraccess`

	selectStatusResellers = `SELECT Status_Id AS entity_id, Reseller_Id AS owner_id,
		COALESCE(CAST(Checked AS CHAR), '') AS checked
		FROM Hstatus_reselleraccess`

	selectServiceVisps = `SELECT Service_Id AS entity_id, Visp_Id AS owner_id,
		COALESCE(CAST(Checked AS CHAR), '') AS checked
		FROM Hservice_vispaccess`

	selectStatusVisps = `SELECT Status_Id AS entity_id, Visp_Id AS owner_id,
		COALESCE(CAST(Checked AS CHAR), '') AS checked
		FROM Hstatus_vispaccess`

	selectCenterVisps = `SELECT Center_Id AS entity_id, Visp_Id AS owner_id,
		COALESCE(CAST(Checked AS CHAR), '') AS checked
		FROM Hcenter_vispaccess`

	selectPermits = `SELECT Reseller_Id AS reseller_id, Visp_Id AS visp_id, PermitItem_Id AS permit_item_id,
		COALESCE(CAST(ISPermit AS CHAR), '') AS is_permit
		FROM Hreseller_permit`
)

type entityRow struct {
	ID             int64
	Name           string
	Enabled        string
	Deleted        string
	ResellerAccess string
	VispAccess     string
}

type linkRow struct {
	EntityID int64
	OwnerID  int64
	Checked  string
}

type permitRow struct {
	ResellerID   int64
	VispID       int64
	PermitItemID *int64
	IsPermit     string
}
